package jam

import (
	"context"
	"encoding/json"
	"fmt"

	repository "github.com/sharetube/jam/internal/repository/jam"
)

// BusMessage is what travels on a jam channel. Receivers re-derive their own
// view from Changed instead of relaying anything.
type BusMessage struct {
	Errors  []string `json:"errors"`
	Changed Changed  `json:"changed"`
}

func (s service) Publish(ctx context.Context, jamId string, changed Changed, errs ...error) error {
	msg := BusMessage{Errors: []string{}, Changed: changed}
	for _, err := range errs {
		if err != nil {
			msg.Errors = append(msg.Errors, err.Error())
		}
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrEncode, err)
	}

	if err := s.repo.Publish(ctx, jamId, payload); err != nil {
		s.logger.InfoContext(ctx, "failed to publish", "error", err)
		return storeError(err)
	}

	return nil
}

// Subscribe returns once the subscription is live.
func (s service) Subscribe(ctx context.Context, jamId string) (repository.Subscription, error) {
	sub, err := s.repo.Subscribe(ctx, jamId)
	if err != nil {
		return nil, storeError(err)
	}

	return sub, nil
}

func DecodeBusMessage(payload string) (BusMessage, error) {
	var msg BusMessage
	if err := json.Unmarshal([]byte(payload), &msg); err != nil {
		return BusMessage{}, fmt.Errorf("%w: %w", ErrDecode, err)
	}

	return msg, nil
}
