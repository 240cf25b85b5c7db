package trap

import (
	"crypto/tls"
	"io"
	"net"
	"sync"
)

// socketTable mirrors fileTable's handle-word convention for the plain
// and TLS TCP trap groups.
type socketTable struct {
	mu    sync.Mutex
	conns map[int64]net.Conn
	lns   map[int64]net.Listener
	next  int64
}

var globalSockets = &socketTable{
	conns: make(map[int64]net.Conn),
	lns:   make(map[int64]net.Listener),
}

func (st *socketTable) addConn(c net.Conn) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.next++
	st.conns[st.next] = c
	return st.next
}

func (st *socketTable) addListener(l net.Listener) int64 {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.next++
	st.lns[st.next] = l
	return st.next
}

func (st *socketTable) conn(h int64) (net.Conn, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	c, ok := st.conns[h]
	return c, ok
}

func (st *socketTable) listener(h int64) (net.Listener, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	l, ok := st.lns[h]
	return l, ok
}

func (st *socketTable) close(h int64) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if c, ok := st.conns[h]; ok {
		c.Close()
		delete(st.conns, h)
	}
	if l, ok := st.lns[h]; ok {
		l.Close()
		delete(st.lns, h)
	}
}

// registerSockets wires SOCK_TCP_* and SOCK_TCP_SSL_*. Both groups
// share the same selector shapes; the TLS variants wrap the same
// net.Conn-based handle table with crypto/tls, the natural stdlib
// counterpart to the abstract "host-OS socket wrapper" the interpreter
// sees as an ordinary trap.
func registerSockets(t Table) {
	t[SockTCPConnect] = func(ctx Context) error {
		addrRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		c, derr := net.Dial("tcp", charArrayToString(addrRef))
		if derr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(globalSockets.addConn(c))
	}
	t[SockTCPBind] = func(ctx Context) error {
		addrRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		l, lerr := net.Listen("tcp", charArrayToString(addrRef))
		if lerr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(globalSockets.addListener(l))
	}
	t[SockTCPListen] = func(ctx Context) error {
		// Binding already puts the listener in a listening state under
		// net.Listen; this selector exists for bytecode symmetry with
		// the host socket API and is a no-op confirmation.
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		_, ok := globalSockets.listener(h)
		return ctx.PushInt(boolWord(ok))
	}
	t[SockTCPAccept] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		l, ok := globalSockets.listener(h)
		if !ok {
			return ctx.PushInt(-1)
		}
		c, aerr := l.Accept()
		if aerr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(globalSockets.addConn(c))
	}
	t[SockTCPClose] = func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		globalSockets.close(h)
		return nil
	}
	t[SockTCPInByte] = sockInByte(false)
	t[SockTCPInCharAry] = sockInCharAry(false)
	t[SockTCPInString] = sockInString(false)
	t[SockTCPOutByte] = sockOutByte(false)
	t[SockTCPOutCharAry] = sockOutCharAry(false)
	t[SockTCPOutString] = sockOutString(false)

	t[SockTCPSSLConnect] = func(ctx Context) error {
		addrRef, err := ctx.PopRef()
		if err != nil {
			return err
		}
		c, derr := tls.Dial("tcp", charArrayToString(addrRef), &tls.Config{})
		if derr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(globalSockets.addConn(c))
	}
	t[SockTCPSSLClose] = t[SockTCPClose]
	t[SockTCPSSLInByte] = sockInByte(true)
	t[SockTCPSSLInCharAry] = sockInCharAry(true)
	t[SockTCPSSLInString] = sockInString(true)
	t[SockTCPSSLOutByte] = sockOutByte(true)
	t[SockTCPSSLOutCharAry] = sockOutCharAry(true)
	t[SockTCPSSLOutString] = sockOutString(true)
}

func sockInByte(_ bool) Func {
	return func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		c, ok := globalSockets.conn(h)
		if !ok {
			return ctx.PushInt(-1)
		}
		var buf [1]byte
		if _, rerr := c.Read(buf[:]); rerr != nil {
			return ctx.PushInt(-1)
		}
		return ctx.PushInt(int64(buf[0]))
	}
}

func sockInCharAry(_ bool) Func {
	return func(ctx Context) error {
		n, err := ctx.PopInt()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		c, ok := globalSockets.conn(h)
		if !ok {
			return ctx.PushRef(nil)
		}
		buf := make([]byte, n)
		read, _ := io.ReadFull(c, buf)
		return ctx.PushRef(stringToCharArray(ctx, string(buf[:read])))
	}
}

func sockInString(_ bool) Func {
	return func(ctx Context) error {
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		c, ok := globalSockets.conn(h)
		if !ok {
			return ctx.PushRef(nil)
		}
		line, _ := readLine(newLineReader(c))
		return ctx.PushRef(stringToCharArray(ctx, line))
	}
}

func sockOutByte(_ bool) Func {
	return func(ctx Context) error {
		b, err := ctx.PopInt()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if c, ok := globalSockets.conn(h); ok {
			c.Write([]byte{byte(b)})
		}
		return nil
	}
}

func sockOutCharAry(_ bool) Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if c, ok := globalSockets.conn(h); ok && ref != nil {
			c.Write(ref.Bytes)
		}
		return nil
	}
}

func sockOutString(_ bool) Func {
	return func(ctx Context) error {
		ref, err := ctx.PopRef()
		if err != nil {
			return err
		}
		h, err := ctx.PopInt()
		if err != nil {
			return err
		}
		if c, ok := globalSockets.conn(h); ok {
			io.WriteString(c, charArrayToString(ref)+"\n")
		}
		return nil
	}
}
