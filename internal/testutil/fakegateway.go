package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/unilove/ridersync/internal/gateway"
)

// FakeGateway is a scriptable in-memory gateway.Gateway. Each operation
// returns whatever the test loaded into the corresponding field; unset
// error fields make the operation succeed with the loaded payload. Call
// counts and captured requests let tests assert on what was sent.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FakeGateway struct {
	mu sync.Mutex

	LoginResult  *gateway.LoginResult
	LoginErr     error
	Queue        []gateway.RemoteOrder
	QueueErr     error
	Verify       *gateway.VerifyResult
	VerifyErr    error
	Collection   *gateway.CollectionResult
	CollectErr   error
	Incident     *gateway.IncidentResult
	IncidentErr  error
	Shift        *gateway.ShiftResult
	ShiftErr     error
	RegisterErr  error
	LogoutErr    error

	LoginCalls    int
	QueueCalls    int
	VerifyCalls   int
	CollectCalls  int
	IncidentCalls int
	ShiftCalls    int
	LogoutCalls   int

	LastLogin     gateway.LoginRequest
	LastQueueTok  string
	LastLimit     int
	LastVerifyID  string
	LastCode      string
	LastCollectID string
	LastIncidents []gateway.IncidentRequest
	LastShift     string
	LastShiftNote string

	// QueueHook, when set, runs inside FetchQueue before the scripted
	// result is returned. Tests use it to clear a session mid-refresh or
	// to block until released.
	QueueHook func()
}

// NewFakeGateway returns an empty fake; every operation succeeds with
// zero-value payloads until scripted.
func NewFakeGateway() *FakeGateway {
	return &FakeGateway{}
}

var _ gateway.Gateway = (*FakeGateway)(nil)

func (f *FakeGateway) Login(_ context.Context, req gateway.LoginRequest) (*gateway.LoginResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LoginCalls++
	f.LastLogin = req
	if f.LoginErr != nil {
		return nil, f.LoginErr
	}
	if f.LoginResult != nil {
		return f.LoginResult, nil
	}
	return &gateway.LoginResult{
		Token: "fake-token",
		Rider: gateway.RiderProfile{ID: req.RiderID, FullName: req.RiderName},
	}, nil
}

func (f *FakeGateway) FetchQueue(_ context.Context, token string, limit int) ([]gateway.RemoteOrder, error) {
	f.mu.Lock()
	f.QueueCalls++
	f.LastQueueTok = token
	f.LastLimit = limit
	hook := f.QueueHook
	queue := append([]gateway.RemoteOrder(nil), f.Queue...)
	err := f.QueueErr
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return queue, nil
}

func (f *FakeGateway) VerifyDelivery(_ context.Context, _, orderID, code string) (*gateway.VerifyResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.VerifyCalls++
	f.LastVerifyID = orderID
	f.LastCode = code
	if f.VerifyErr != nil {
		return nil, f.VerifyErr
	}
	if f.Verify != nil {
		return f.Verify, nil
	}
	return &gateway.VerifyResult{Success: true}, nil
}

func (f *FakeGateway) ConfirmCollection(_ context.Context, _, orderID string) (*gateway.CollectionResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.CollectCalls++
	f.LastCollectID = orderID
	if f.CollectErr != nil {
		return nil, f.CollectErr
	}
	if f.Collection != nil {
		return f.Collection, nil
	}
	return &gateway.CollectionResult{Confirmed: true, PaymentStatus: "PAID"}, nil
}

func (f *FakeGateway) SubmitIncident(_ context.Context, _ string, req gateway.IncidentRequest) (*gateway.IncidentResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.IncidentCalls++
	f.LastIncidents = append(f.LastIncidents, req)
	if f.IncidentErr != nil {
		return nil, f.IncidentErr
	}
	if f.Incident != nil {
		return f.Incident, nil
	}
	return &gateway.IncidentResult{
		IncidentID: fmt.Sprintf("srv-incident-%d", f.IncidentCalls),
		Status:     "RECEIVED",
		Severity:   req.Severity,
	}, nil
}

func (f *FakeGateway) UpdateShift(_ context.Context, _, status, note string) (*gateway.ShiftResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ShiftCalls++
	f.LastShift = status
	f.LastShiftNote = note
	if f.ShiftErr != nil {
		return nil, f.ShiftErr
	}
	if f.Shift != nil {
		return f.Shift, nil
	}
	return &gateway.ShiftResult{ShiftStatus: status}, nil
}

func (f *FakeGateway) RegisterDeviceToken(_ context.Context, _, _, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.RegisterErr
}

func (f *FakeGateway) Logout(_ context.Context, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.LogoutCalls++
	return f.LogoutErr
}
