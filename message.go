package xactor

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind identifies a message variant. The set is closed: every value the bus
// routes is one of the variants below, and the unexported marker on Message
// keeps external packages from adding new ones.
type Kind uint8

const (
	KindPriceUpdate Kind = iota
	KindOrderRequest
	KindRiskVerdict
	KindExecutionReport
	KindControl

	numKinds = int(KindControl) + 1
)

func (k Kind) String() string {
	switch k {
	case KindPriceUpdate:
		return "price_update"
	case KindOrderRequest:
		return "order_request"
	case KindRiskVerdict:
		return "risk_verdict"
	case KindExecutionReport:
		return "execution_report"
	case KindControl:
		return "control"
	default:
		return "unknown"
	}
}

// Kinds returns every routable variant in declaration order.
func Kinds() []Kind {
	return []Kind{KindPriceUpdate, KindOrderRequest, KindRiskVerdict, KindExecutionReport, KindControl}
}

// Message is the closed union of payloads traveling the bus. Variants are
// value types and must be treated as immutable once published; subscribers
// receive their own copy inside an Envelope.
//
// Timestamp is the producer-supplied logical time. A zero value instructs the
// bus to stamp the envelope from its own clock at publish time.
type Message interface {
	Kind() Kind
	Timestamp() time.Time

	isMessage()
}

// Side is the direction of an order.
type Side uint8

const (
	SideBuy Side = iota
	SideSell
)

func (s Side) String() string {
	if s == SideSell {
		return "sell"
	}
	return "buy"
}

// ExecStatus is the terminal state reported for an order.
type ExecStatus uint8

const (
	ExecFilled ExecStatus = iota
	ExecPartiallyFilled
	ExecRejected
)

func (s ExecStatus) String() string {
	switch s {
	case ExecFilled:
		return "filled"
	case ExecPartiallyFilled:
		return "partially_filled"
	case ExecRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Signal enumerates control-plane commands.
type Signal uint8

const (
	SignalShutdown Signal = iota
	SignalPause
	SignalResume
)

func (s Signal) String() string {
	switch s {
	case SignalShutdown:
		return "shutdown"
	case SignalPause:
		return "pause"
	case SignalResume:
		return "resume"
	default:
		return "unknown"
	}
}

// PriceUpdate is a market tick for a single symbol.
type PriceUpdate struct {
	Symbol string
	Price  decimal.Decimal
	Volume decimal.Decimal
	TS     time.Time
}

func (PriceUpdate) Kind() Kind             { return KindPriceUpdate }
func (m PriceUpdate) Timestamp() time.Time { return m.TS }
func (PriceUpdate) isMessage()             {}

// OrderRequest asks the execution venue to work an order.
type OrderRequest struct {
	ID         string
	Symbol     string
	Side       Side
	Qty        decimal.Decimal
	Price      decimal.Decimal
	StrategyID string
	TS         time.Time
}

func (OrderRequest) Kind() Kind             { return KindOrderRequest }
func (m OrderRequest) Timestamp() time.Time { return m.TS }
func (OrderRequest) isMessage()             {}

// RiskVerdict is the risk checker's answer for a single order.
type RiskVerdict struct {
	OrderID  string
	Approved bool
	Reason   string
	TS       time.Time
}

func (RiskVerdict) Kind() Kind             { return KindRiskVerdict }
func (m RiskVerdict) Timestamp() time.Time { return m.TS }
func (RiskVerdict) isMessage()             {}

// ExecutionReport describes the outcome of working an order.
type ExecutionReport struct {
	OrderID   string
	FilledQty decimal.Decimal
	AvgPrice  decimal.Decimal
	Status    ExecStatus
	TS        time.Time
}

func (ExecutionReport) Kind() Kind             { return KindExecutionReport }
func (m ExecutionReport) Timestamp() time.Time { return m.TS }
func (ExecutionReport) isMessage()             {}

// Control is a control-plane signal. It is routable like any other variant
// but travels each actor's priority lane so it stays actionable while the
// data inbox is backed up or the actor is paused.
type Control struct {
	Signal Signal
	TS     time.Time
}

func (Control) Kind() Kind             { return KindControl }
func (m Control) Timestamp() time.Time { return m.TS }
func (Control) isMessage()             {}
