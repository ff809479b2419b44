package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"multi-merchant-settlement/internal/core/ports"
	"multi-merchant-settlement/internal/core/ports/mocks"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func TestScheduler_RunsJobsUntilCancelled(t *testing.T) {
	ctrl := gomock.NewController(t)
	recon := mocks.NewMockReconciliationService(ctrl)

	ctx, cancel := context.WithCancel(context.Background())
	synced := make(chan struct{}, 1)
	cleaned := make(chan struct{}, 1)

	recon.EXPECT().SyncAll(gomock.Any()).DoAndReturn(func(context.Context) (*ports.SyncReport, error) {
		select {
		case synced <- struct{}{}:
		default:
		}
		return &ports.SyncReport{}, nil
	}).MinTimes(1)
	recon.EXPECT().CleanupOldSales(gomock.Any(), 30).DoAndReturn(func(context.Context, int) (int64, error) {
		select {
		case cleaned <- struct{}{}:
		default:
		}
		return 0, errors.New("db down")
	}).MinTimes(1)

	s := NewScheduler(recon, 5*time.Millisecond, 7*time.Millisecond, 30, newTestLogger())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	<-synced
	<-cleaned
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop")
	}
}

func TestScheduler_DisabledJobsNeverRun(t *testing.T) {
	ctrl := gomock.NewController(t)
	recon := mocks.NewMockReconciliationService(ctrl)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := NewScheduler(recon, 0, 0, 90, newTestLogger()).Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
