package modbus

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
	"sync/atomic"
	"time"
)

// Client is a minimal Modbus TCP client used by the load tester to issue
// requests against a running Server.
type Client struct {
	conn   net.Conn
	nextID atomic.Uint32
}

func Dial(ctx context.Context, addr string) (*Client, error) {
	d := net.Dialer{}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("modbus: dial %s: %w", addr, err)
	}
	return &Client{conn: conn}, nil
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// ReadHoldingRegisters issues FC 03 and returns the decoded register
// values, or an error if the server replied with an exception.
func (c *Client) ReadHoldingRegisters(ctx context.Context, unitID byte, addr, qty uint16) ([]uint16, error) {
	txID := uint16(c.nextID.Add(1))
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], qty)

	req := Encode(Frame{TransactionID: txID, UnitID: unitID, FunctionCode: FuncReadHoldingRegisters, Data: data})

	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return nil, err
	}
	if resp.FunctionCode&0x80 != 0 {
		return nil, fmt.Errorf("modbus: exception code %d", resp.Data[0])
	}
	byteCount := int(resp.Data[0])
	values := make([]uint16, byteCount/2)
	for i := range values {
		values[i] = binary.BigEndian.Uint16(resp.Data[1+2*i:])
	}
	return values, nil
}

// WriteSingleRegister issues FC 06.
func (c *Client) WriteSingleRegister(ctx context.Context, unitID byte, addr, value uint16) error {
	txID := uint16(c.nextID.Add(1))
	data := make([]byte, 4)
	binary.BigEndian.PutUint16(data[0:2], addr)
	binary.BigEndian.PutUint16(data[2:4], value)

	req := Encode(Frame{TransactionID: txID, UnitID: unitID, FunctionCode: FuncWriteSingleRegister, Data: data})
	resp, err := c.roundTrip(ctx, req)
	if err != nil {
		return err
	}
	if resp.FunctionCode&0x80 != 0 {
		return fmt.Errorf("modbus: exception code %d", resp.Data[0])
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, req []byte) (Frame, error) {
	if deadline, ok := ctx.Deadline(); ok {
		c.conn.SetDeadline(deadline)
	} else {
		c.conn.SetDeadline(time.Now().Add(5 * time.Second))
	}
	defer c.conn.SetDeadline(time.Time{})

	if _, err := c.conn.Write(req); err != nil {
		return Frame{}, fmt.Errorf("modbus: write request: %w", err)
	}

	header := make([]byte, 6)
	if _, err := io.ReadFull(c.conn, header); err != nil {
		return Frame{}, fmt.Errorf("modbus: read header: %w", err)
	}
	length := binary.BigEndian.Uint16(header[4:6])
	rest := make([]byte, length)
	if _, err := io.ReadFull(c.conn, rest); err != nil {
		return Frame{}, fmt.Errorf("modbus: read body: %w", err)
	}

	full := append(header, rest...)
	return Parse(full)
}
