// Package tasks defines the background task types and their payloads.
package tasks

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TypePurgeAuth       = "maintenance:purge_auth"
	TypeCurrencyRefresh = "currency:refresh"
)

// CurrencyRefreshPayload names the base currency to refresh.
type CurrencyRefreshPayload struct {
	Base string `json:"base"`
}

// NewPurgeAuthTask deletes expired sessions and refresh tokens. Unique keeps
// a slow run from piling up behind itself.
func NewPurgeAuthTask() *asynq.Task {
	return asynq.NewTask(TypePurgeAuth, nil, asynq.MaxRetry(3), asynq.Timeout(5*time.Minute), asynq.Unique(time.Hour))
}

func NewCurrencyRefreshTask(base string) (*asynq.Task, error) {
	b, err := json.Marshal(CurrencyRefreshPayload{Base: strings.ToUpper(base)})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeCurrencyRefresh, b, asynq.MaxRetry(5), asynq.Timeout(time.Minute)), nil
}

func ParseCurrencyRefresh(t *asynq.Task) (CurrencyRefreshPayload, error) {
	var p CurrencyRefreshPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("invalid %s payload: %w", TypeCurrencyRefresh, err)
	}
	if p.Base == "" {
		return p, fmt.Errorf("invalid %s payload: base is required", TypeCurrencyRefresh)
	}
	return p, nil
}
