package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"invoicely/services/currency"
	"invoicely/services/tasks"
)

type fakePurger struct {
	calls int
	err   error
}

func (f *fakePurger) PurgeExpired(context.Context) error {
	f.calls++
	return f.err
}

type fakeRates struct {
	enabled bool
	bases   []string
	err     error
}

func (f *fakeRates) Enabled() bool { return f.enabled }

func (f *fakeRates) Refresh(_ context.Context, base string) (*currency.Rates, error) {
	f.bases = append(f.bases, base)
	if f.err != nil {
		return nil, f.err
	}
	return &currency.Rates{Base: base, FetchedAt: time.Now()}, nil
}

func TestMux_PurgeAuth(t *testing.T) {
	purger := &fakePurger{}
	mux := NewMux(purger, &fakeRates{}, zap.NewNop())

	require.NoError(t, mux.ProcessTask(context.Background(), tasks.NewPurgeAuthTask()))
	assert.Equal(t, 1, purger.calls)

	purger.err = errors.New("db down")
	assert.Error(t, mux.ProcessTask(context.Background(), tasks.NewPurgeAuthTask()))
}

func TestMux_CurrencyRefresh(t *testing.T) {
	rates := &fakeRates{enabled: true}
	mux := NewMux(&fakePurger{}, rates, zap.NewNop())

	task, err := tasks.NewCurrencyRefreshTask("usd")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Equal(t, []string{"USD"}, rates.bases)

	rates.err = errors.New("timeout")
	assert.Error(t, mux.ProcessTask(context.Background(), task))
}

func TestMux_CurrencyRefreshDisabled(t *testing.T) {
	rates := &fakeRates{}
	mux := NewMux(&fakePurger{}, rates, zap.NewNop())

	task, err := tasks.NewCurrencyRefreshTask("EUR")
	require.NoError(t, err)
	require.NoError(t, mux.ProcessTask(context.Background(), task))
	assert.Empty(t, rates.bases)
}

func TestMux_BadPayloadSkipsRetry(t *testing.T) {
	mux := NewMux(&fakePurger{}, &fakeRates{enabled: true}, zap.NewNop())

	err := mux.ProcessTask(context.Background(), asynq.NewTask(tasks.TypeCurrencyRefresh, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}
