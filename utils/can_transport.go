package utils

import (
	"context"
	"fmt"
	"net"
	"sync"

	"go.einride.tech/can"
	"go.einride.tech/can/pkg/socketcan"
	"go.uber.org/multierr"
)

type CANWriter interface {
	WriteFrame(ctx context.Context, frame can.Frame) error
	Close() error
}

type SocketCANWriter struct {
	conn net.Conn
	tx   *socketcan.Transmitter
}

func NewSocketCANWriter(ctx context.Context, iface string) (*SocketCANWriter, error) {
	conn, err := socketcan.DialContext(ctx, "can", iface)
	if err != nil {
		return nil, fmt.Errorf("socketcan dial %s: %w", iface, err)
	}
	return &SocketCANWriter{
		conn: conn,
		tx:   socketcan.NewTransmitter(conn),
	}, nil
}

func (w *SocketCANWriter) WriteFrame(ctx context.Context, frame can.Frame) error {
	return w.tx.TransmitFrame(ctx, frame)
}

func (w *SocketCANWriter) Close() error {
	if w.conn != nil {
		return w.conn.Close()
	}
	return nil
}

// CANBus pairs a writer and a reader on one interface and encodes through a CAN map.
type CANBus struct {
	Map    *CANMap
	writer CANWriter
	reader CANReader

	closeOnce sync.Once
}

func NewCANBus(m *CANMap, w CANWriter, r CANReader) *CANBus {
	return &CANBus{Map: m, writer: w, reader: r}
}

// DialCANBus opens TX and RX sockets on iface.
func DialCANBus(ctx context.Context, iface string, m *CANMap) (*CANBus, error) {
	w, err := NewSocketCANWriter(ctx, iface)
	if err != nil {
		return nil, err
	}
	r, err := NewSocketCANReader(ctx, iface)
	if err != nil {
		return nil, multierr.Append(err, w.Close())
	}
	return NewCANBus(m, w, r), nil
}

// Send encodes values into the named frame and transmits it.
func (b *CANBus) Send(ctx context.Context, frameName string, values map[string]float64) error {
	f, err := b.Map.EncodeEinrideFrame(frameName, values)
	if err != nil {
		return err
	}
	return b.writer.WriteFrame(ctx, f)
}

// Receive reads frames until ctx is done, handing every frame known to the map
// to handle. Unknown IDs are skipped.
func (b *CANBus) Receive(ctx context.Context, log *Logger, handle func(fd *FrameDef, values map[string]float64)) error {
	log.Debug("RX loop started")
	defer log.Debug("RX loop stopped")

	stop := context.AfterFunc(ctx, func() { _ = b.Close() })
	defer stop()

	for {
		frame, err := b.reader.ReadFrame(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("can rx: %w", err)
		}
		fd, values, err := b.Map.DecodeEinrideFrame(frame)
		if err != nil {
			log.Trace("RX skip id=0x%X: %v", frame.ID, err)
			continue
		}
		log.Trace("RX %s id=0x%X data=% X", fd.Name, frame.ID, frame.Data[:frame.Length])
		handle(fd, values)
	}
}

func (b *CANBus) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = multierr.Combine(b.reader.Close(), b.writer.Close())
	})
	return err
}
