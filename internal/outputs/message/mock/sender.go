package mock

import (
	"context"

	"github.com/bakkerme/jobalert/internal/outputs/message"
)

// Sender records messages. Errs, if set, is consumed one entry per call,
// and a nil entry means success.
type Sender struct {
	Messages []message.Message
	Err      error
	Errs     []error
	Calls    int
}

func (s *Sender) Send(ctx context.Context, msg message.Message) error {
	_ = ctx
	s.Calls++
	if len(s.Errs) > 0 {
		err := s.Errs[0]
		s.Errs = s.Errs[1:]
		if err != nil {
			return err
		}
	} else if s.Err != nil {
		return s.Err
	}
	s.Messages = append(s.Messages, msg)
	return nil
}
