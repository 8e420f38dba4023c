package messaging

import (
	"context"
	"errors"
	"fmt"

	"github.com/ZaguanLabs/pagetl"
)

// Transport sends a request message and returns the reply.
type Transport interface {
	Request(ctx context.Context, msg Message) (Message, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, msg Message) (Message, error)

// Request calls f.
func (f TransportFunc) Request(ctx context.Context, msg Message) (Message, error) {
	return f(ctx, msg)
}

// RemoteSurface is a content surface living on the other side of a transport.
type RemoteSurface struct {
	transport Transport
}

// NewRemoteSurface creates a content surface that forwards to transport.
func NewRemoteSurface(transport Transport) *RemoteSurface {
	return &RemoteSurface{transport: transport}
}

// GetPageContent requests a fresh extraction.
func (s *RemoteSurface) GetPageContent(ctx context.Context) ([]pagetl.Unit, error) {
	reply, err := s.request(ctx, GetPageContent(), TypePageContent)
	if err != nil {
		return nil, err
	}
	return reply.ContentUnits(), nil
}

// ReplaceContent sends translated units for replacement.
func (s *RemoteSurface) ReplaceContent(ctx context.Context, units []pagetl.TranslatedUnit) (pagetl.ReplaceResult, error) {
	reply, err := s.request(ctx, ReplaceContent(units), TypeReplaceResult)
	if err != nil {
		return pagetl.ReplaceResult{}, err
	}
	return reply.ReplaceOutcome(), nil
}

func (s *RemoteSurface) request(ctx context.Context, msg Message, want Type) (Message, error) {
	reply, err := s.transport.Request(ctx, msg)
	if err != nil {
		return Message{}, err
	}
	if reply.Type == TypeError {
		return Message{}, errors.New(reply.Error)
	}
	if reply.Type != want {
		return Message{}, fmt.Errorf("unexpected reply %s to %s", reply.Type, msg.Type)
	}
	return reply, nil
}

// Serve answers a content request against surface. Unknown message types
// produce an ERROR reply.
func Serve(ctx context.Context, surface pagetl.ContentSurface, msg Message) Message {
	switch msg.Type {
	case TypeGetPageContent:
		units, err := surface.GetPageContent(ctx)
		if err != nil {
			return Message{Type: TypeError, Error: err.Error()}
		}
		return PageContent(units)
	case TypeReplaceContent:
		res, err := surface.ReplaceContent(ctx, msg.TranslatedUnits())
		if err != nil {
			return Message{Type: TypeError, Error: err.Error()}
		}
		return ReplaceResult(res)
	}
	return Message{Type: TypeError, Error: fmt.Sprintf("unsupported message type %q", msg.Type)}
}

// Loopback connects a RemoteSurface directly to a local surface. Every
// message goes through JSON as it would over a real channel.
func Loopback(surface pagetl.ContentSurface) Transport {
	return roundTrip(func(ctx context.Context, msg Message) Message {
		return Serve(ctx, surface, msg)
	})
}

// roundTrip encodes the request and the reply around answer.
func roundTrip(answer func(ctx context.Context, msg Message) Message) Transport {
	return TransportFunc(func(ctx context.Context, msg Message) (Message, error) {
		data, err := msg.Encode()
		if err != nil {
			return Message{}, err
		}
		req, err := Decode(data)
		if err != nil {
			return Message{}, err
		}

		data, err = answer(ctx, req).Encode()
		if err != nil {
			return Message{}, err
		}
		return Decode(data)
	})
}

// Verify RemoteSurface implements ContentSurface
var _ pagetl.ContentSurface = (*RemoteSurface)(nil)
