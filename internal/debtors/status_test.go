package debtors

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDeriveStatus(t *testing.T) {
	at := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name    string
		balance float64
		dueDate time.Time
		want    string
	}{
		{"settled wins over due date", 0, at.Add(-48 * time.Hour), StatusSettled},
		{"no due date stays active", 150, time.Time{}, StatusActive},
		{"past due date is overdue", 150, at.Add(-time.Hour), StatusOverdue},
		{"due within three days", 150, at.Add(2 * 24 * time.Hour), StatusDueSoon},
		{"due exactly at the window edge", 150, at.Add(3 * 24 * time.Hour), StatusDueSoon},
		{"due beyond the window", 150, at.Add(4 * 24 * time.Hour), StatusActive},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := &Debtor{Balance: tc.balance, DueDate: tc.dueDate}
			require.Equal(t, tc.want, DeriveStatus(d, at))
		})
	}
}

func TestDeriveStatusNilDebtor(t *testing.T) {
	require.Equal(t, StatusActive, DeriveStatus(nil, time.Now()))
}

func TestListRecomputesStatus(t *testing.T) {
	repo := newMemoryRepo()
	svc := NewService(repo, nil, nil)

	fixed := time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { return fixed }
	defer func() { now = time.Now }()

	d := repo.addDebtor(1, 100, 0)
	repo.mu.Lock()
	repo.debtors[d.ID].DueDate = fixed.Add(-time.Hour)
	repo.mu.Unlock()

	list, err := svc.ListDebtors(context.Background(), 1, ListDebtorsRequest{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, StatusOverdue, list[0].Status)
}
