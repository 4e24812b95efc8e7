// Command rslctl runs the RSL controller against a network
// configuration, accepting inbound A-bis/RSL TCP connections and
// dispatching their frames into the core. Every connection is bound to
// the C0 TRX of BTS 0; other BTSs and TRXs get no connection of their own.
package main

import (
	"bufio"
	"encoding/binary"
	"io"
	"net"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/pflag"

	"github.com/gsmcore/rslctl/internal/rsl"
)

func main() {
	configPath := pflag.StringP("config", "c", "rslctl.yaml", "network configuration file")
	listenAddr := pflag.StringP("listen", "l", ":4729", "address to accept A-bis/RSL TCP connections on")
	logLevel := pflag.String("log-level", "info", "log level: debug, info, warn, error")
	pflag.Parse()

	log := rsl.NewLogger(os.Stderr, parseLevel(*logLevel))

	netCfg, err := rsl.LoadNetworkConfig(*configPath)
	if err != nil {
		log.Fatal("loading network configuration", "path", *configPath, "err", err)
	}

	alloc := newRoundRobinAllocator()
	l3 := discardL3{log: log}
	ctl := rsl.NewController(log, alloc, l3)

	for _, btsCfg := range netCfg.BTSs {
		bts := rsl.NewBTS(btsCfg)
		ctl.AddBTS(bts)
	}

	if netCfg.PagingTracePattern != "" {
		ctl.EnablePagingTrace(netCfg.PagingTracePattern)
	}

	ln, err := net.Listen("tcp", *listenAddr)
	if err != nil {
		log.Fatal("listening for A-bis connections", "addr", *listenAddr, "err", err)
	}
	log.Info("rslctl listening", "addr", *listenAddr, "btss", len(netCfg.BTSs))

	// Run is the controller's single event-loop goroutine: every
	// connection reader below only ever hands it work via ctl.Post, and
	// every timer fired by the lchan/release/paging machinery is routed
	// here too (NewController wires Timers.SetPost to ctl.Post), so
	// nothing touches lchan/BTS state off this goroutine.
	go ctl.Run()

	for {
		conn, err := ln.Accept()
		if err != nil {
			log.Error("accept failed", "err", err)
			continue
		}
		go serveConn(ctl, log, conn)
	}
}

func parseLevel(s string) charmlog.Level {
	switch s {
	case "debug":
		return charmlog.DebugLevel
	case "warn":
		return charmlog.WarnLevel
	case "error":
		return charmlog.ErrorLevel
	default:
		return charmlog.InfoLevel
	}
}

// tcpLink adapts a net.Conn to rsl.TransportLink, length-prefixing
// frames with a 2-byte big-endian size so reads on the other side can
// find frame boundaries over a TCP byte stream.
type tcpLink struct {
	conn net.Conn
}

func (t *tcpLink) Enqueue(frame []byte) error {
	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(frame)))
	if _, err := t.conn.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := t.conn.Write(frame)
	return err
}

// serveConn binds conn as the link of BTS 0's C0 TRX and reads
// length-prefixed frames from it until the connection closes.
// It never calls into the controller directly: reading off the socket
// happens on this connection's own goroutine, but every decoded frame
// is posted to the controller's single event-loop goroutine (started
// by ctl.Run in main) so dispatch never races another connection's
// frames or a fired timer.
func serveConn(ctl *rsl.Controller, log rsl.Logger, conn net.Conn) {
	defer conn.Close()

	bts := ctl.BTS(0)
	if bts == nil || bts.C0 == nil {
		log.Error("no configured BTS/TRX to bind this connection to")
		return
	}
	link := &tcpLink{conn: conn}
	bts.C0.Link = link

	r := bufio.NewReader(conn)
	for {
		var lenBuf [2]byte
		if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
			log.Debug("A-bis connection closed", "remote", conn.RemoteAddr(), "err", err)
			return
		}
		n := binary.BigEndian.Uint16(lenBuf[:])
		frame := make([]byte, n)
		if _, err := io.ReadFull(r, frame); err != nil {
			log.Debug("A-bis connection closed mid-frame", "remote", conn.RemoteAddr(), "err", err)
			return
		}
		trx := bts.C0
		ctl.Post(func() {
			if err := ctl.Deliver(trx, frame); err != nil {
				log.Warn("frame dispatch error", "err", err)
			}
		})
	}
}

// discardL3 is a stand-in L3 collaborator: it logs DATA/EST
// indications instead of handing them to a mobility/call-control
// processor, since that layer is out of scope.
type discardL3 struct {
	log rsl.Logger
}

func (d discardL3) Receive(l *rsl.Lchan, linkID byte, payload []byte) {
	d.log.Debug("L3 payload received, discarded", "lchan", l.Name(), "link_id", linkID, "len", len(payload))
}

// roundRobinAllocator is a minimal stand-in channel allocator: it
// walks the timeslots of the BTS's C0 TRX looking for an idle lchan of
// the requested kind; other TRXs are not searched. A production BSC
// injects a richer policy.
type roundRobinAllocator struct{}

func newRoundRobinAllocator() *roundRobinAllocator { return &roundRobinAllocator{} }

func (a *roundRobinAllocator) Acquire(bts *rsl.BTS, kind rsl.LchanKind, preferAlt bool) *rsl.Lchan {
	if bts.C0 == nil {
		return nil
	}
	for _, ts := range bts.C0.Timeslots {
		if ts == nil {
			continue
		}
		for _, l := range ts.Lchans {
			if l != nil && l.Kind == kind && l.State == rsl.StateNone {
				return l
			}
		}
	}
	return nil
}

func (a *roundRobinAllocator) Release(l *rsl.Lchan) {}
