/*
Package relay implements the duplex relay engine of a stream proxy client.

An Engine takes a client channel and a server channel, lets a Handshaker make
the server channel ready for a destination (for example by wrapping it in a
shadowsocks cipher), and then copies bytes in both directions until both
directions reach EOF, an error occurs, or the session is cancelled.

	e := relay.New(shadowsocksHandshaker, relay.ZapSink{})
	if err := e.Connect(ctx, target, localConn, serverConn); err != nil {
		return err
	}
	<-e.Done()

Life cycle:

	Idle/Disconnected/Failed --Connect--> Connecting --> Connected | Failed
	Connected --both EOF / fatal error / Disconnect--> Disconnecting --> Disconnected

一个方向EOF只会半关闭对面的写端, 另一个方向继续转发, 直到两个方向都EOF.
错误不会跨越转发循环抛出, 而是归类后记入 Err, 见 ErrorKind.
*/
package relay
