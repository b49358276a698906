/*
Package ss_relay provides a simple shadowsocks stream relay client.

# Structure 本项目结构

utils -> netLayer -> relay -> proxy/shadowsocks -> config -> ss_relay -> machine -> cmd/ssrelay

relay 包定义了 转发引擎 (Engine) 本身: 状态机, 双向转发, 半关闭, 取消, 错误分类.
它不知道任何加密协议, 加密由 Handshaker 提供, 见 proxy/shadowsocks.

根项目 ss_relay 仅研究实际转发过程: 监听本地端口, 对每个连接 拨号 shadowsocks 服务器,
然后交给一个新的 relay.Engine.

# Chain

具体 转发过程 的 调用链 是 ListenSer -> handleNewIncomeConnection -> Outbound.Dial -> relay.Engine.Connect -> Engine.Done

使用方式可以阅读 listen_test.go
*/
package ss_relay
