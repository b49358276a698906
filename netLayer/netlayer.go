/*
Package netLayer contains definitions in network layer AND transport layer.

本包有 地址(Addr), 拨号, dns解析, 监听 以及 单方向转发 等相关功能。
*/
package netLayer
