package testutil

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/kassir-pos/possync/internal/remote"
	"github.com/kassir-pos/possync/internal/sale"
)

// ErrStubOffline is the cause of every error from an offline StubRemote.
var ErrStubOffline = errors.New("stub remote: connection refused")

// Match selects confirm requests for a StubRemote rule.
type Match func(req sale.ConfirmRequest) bool

// MatchAll matches every request.
func MatchAll() Match {
	return func(sale.ConfirmRequest) bool { return true }
}

// MatchComment matches requests whose comment equals c. Tests tag sales
// with a comment to address them individually.
func MatchComment(c string) Match {
	return func(req sale.ConfirmRequest) bool { return req.Comment == c }
}

type stubRule struct {
	match Match
	conf  sale.Confirmation
	err   error
}

// StubRemote is a scripted in-memory backend.
//
// By default every ConfirmSale succeeds with remote ids "S1", "S2", ... in
// call order. Rules added with Reject, Fail and Succeed override that; the
// most recently added matching rule wins.
//
// Thread-safety: All methods are safe for concurrent use via internal mutex.
type StubRemote struct {
	mu        sync.Mutex
	rules     []stubRule
	calls     []sale.ConfirmRequest
	transfers []remote.TransferRequest
	nextID    int
	offline   bool
	hold      chan struct{}
	entered   chan struct{}

	transferErr error
	products    []sale.Product
	balances    []sale.Balance
	methods     []sale.PaymentMethod
}

// NewStubRemote creates a backend that confirms everything.
func NewStubRemote() *StubRemote {
	return &StubRemote{}
}

// Reject makes matching requests complete with success=false.
func (s *StubRemote) Reject(match Match, message string) {
	s.addRule(stubRule{match: match, conf: sale.Confirmation{Success: false, Message: message}})
}

// Fail makes matching requests fail with a NETWORK error.
func (s *StubRemote) Fail(match Match, cause error) {
	s.addRule(stubRule{match: match, err: sale.NetworkError("confirm sale", cause)})
}

// Succeed makes matching requests succeed with a fixed remote id. An empty
// id simulates a backend that confirms without returning one.
func (s *StubRemote) Succeed(match Match, remoteID string) {
	s.addRule(stubRule{match: match, conf: sale.Confirmation{Success: true, RemoteID: remoteID}})
}

// ClearRules restores the default confirm-everything behavior.
func (s *StubRemote) ClearRules() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = nil
}

func (s *StubRemote) addRule(r stubRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules = append(s.rules, r)
}

// SetOffline makes every call fail with a NETWORK error and Probe report
// offline.
func (s *StubRemote) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// Hold makes subsequent ConfirmSale calls block after being recorded.
// Each blocked call sends on entered. release unblocks all of them and
// ends the hold.
func (s *StubRemote) Hold() (entered <-chan struct{}, release func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.hold = make(chan struct{})
	s.entered = make(chan struct{}, 64)

	hold := s.hold
	var once sync.Once
	return s.entered, func() {
		once.Do(func() {
			s.mu.Lock()
			if s.hold == hold {
				s.hold = nil
			}
			s.mu.Unlock()
			close(hold)
		})
	}
}

// ConfirmSale implements engine.Confirmer.
func (s *StubRemote) ConfirmSale(ctx context.Context, req sale.ConfirmRequest) (sale.Confirmation, error) {
	s.mu.Lock()
	s.calls = append(s.calls, req)
	hold, entered := s.hold, s.entered
	s.mu.Unlock()

	if hold != nil {
		entered <- struct{}{}
		select {
		case <-hold:
		case <-ctx.Done():
			return sale.Confirmation{}, sale.NetworkError("confirm sale", ctx.Err())
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.offline {
		return sale.Confirmation{}, sale.NetworkError("confirm sale", ErrStubOffline)
	}
	for i := len(s.rules) - 1; i >= 0; i-- {
		r := s.rules[i]
		if r.match(req) {
			return r.conf, r.err
		}
	}
	s.nextID++
	return sale.Confirmation{Success: true, RemoteID: fmt.Sprintf("S%d", s.nextID)}, nil
}

// Calls returns a copy of every confirm request received, in order.
func (s *StubRemote) Calls() []sale.ConfirmRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]sale.ConfirmRequest, len(s.calls))
	copy(out, s.calls)
	return out
}

// CallCount returns the number of confirm requests received.
func (s *StubRemote) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

// CallsWhere returns the number of confirm requests selected by match.
func (s *StubRemote) CallsWhere(match Match) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if match(c) {
			n++
		}
	}
	return n
}

// SetTransferError makes every TransferStock call fail with err.
func (s *StubRemote) SetTransferError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transferErr = err
}

// TransferStock implements remote.StockTransferer.
func (s *StubRemote) TransferStock(ctx context.Context, req remote.TransferRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transfers = append(s.transfers, req)
	if s.offline {
		return sale.NetworkError("transfer stock", ErrStubOffline)
	}
	return s.transferErr
}

// Transfers returns a copy of every transfer request received.
func (s *StubRemote) Transfers() []remote.TransferRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]remote.TransferRequest, len(s.transfers))
	copy(out, s.transfers)
	return out
}

// SetCatalog sets the reference data served by the catalog methods.
func (s *StubRemote) SetCatalog(products []sale.Product, balances []sale.Balance, methods []sale.PaymentMethod) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products = products
	s.balances = balances
	s.methods = methods
}

// Products returns the catalog products of companyID.
func (s *StubRemote) Products(ctx context.Context, companyID string) ([]sale.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, sale.NetworkError("fetch products", ErrStubOffline)
	}
	out := []sale.Product{}
	for _, p := range s.products {
		if p.CompanyID == "" || p.CompanyID == companyID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ProductBalances returns the balances held at storeLocationID.
func (s *StubRemote) ProductBalances(ctx context.Context, storeLocationID string) ([]sale.Balance, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, sale.NetworkError("fetch product balances", ErrStubOffline)
	}
	out := []sale.Balance{}
	for _, b := range s.balances {
		if b.StoreLocationID == "" || b.StoreLocationID == storeLocationID {
			out = append(out, b)
		}
	}
	return out, nil
}

// PaymentMethods returns the configured payment methods.
func (s *StubRemote) PaymentMethods(ctx context.Context, companyID string) ([]sale.PaymentMethod, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return nil, sale.NetworkError("fetch payment methods", ErrStubOffline)
	}
	out := make([]sale.PaymentMethod, len(s.methods))
	copy(out, s.methods)
	return out, nil
}

// Probe reports the offline flag as connectivity.
func (s *StubRemote) Probe(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.offline {
		return sale.NetworkError("probe backend", ErrStubOffline)
	}
	return nil
}
