package sync

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/klauern/treesync/internal/logging"
)

// Policy decides whether a class of operation is carried out.
type Policy string

const (
	// PolicyAlways performs the operation without asking.
	PolicyAlways Policy = "always"

	// PolicyNever never performs the operation.
	PolicyNever Policy = "never"

	// PolicyAsk consults the Decider for every operation.
	PolicyAsk Policy = "ask"
)

// IsValid returns true if the policy is recognized.
func (p Policy) IsValid() bool {
	switch p {
	case PolicyAlways, PolicyNever, PolicyAsk:
		return true
	default:
		return false
	}
}

// AllPolicies returns all supported policies.
func AllPolicies() []Policy {
	return []Policy{PolicyAlways, PolicyNever, PolicyAsk}
}

// String returns the string representation of the policy.
func (p Policy) String() string {
	return string(p)
}

// Description returns a human-readable description of the policy.
func (p Policy) Description() string {
	switch p {
	case PolicyAlways:
		return "Perform the operation without asking"
	case PolicyNever:
		return "Never perform the operation"
	case PolicyAsk:
		return "Ask before each operation"
	default:
		return "Unknown policy"
	}
}

// ParsePolicy parses a policy name, case-insensitively.
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if !p.IsValid() {
		return "", fmt.Errorf("invalid policy %q (valid: always, never, ask)", s)
	}
	return p, nil
}

// Operation is a class of target modification governed by a policy.
// Plain copies of new files are not governed.
type Operation string

const (
	// OpRename renames a target file to the name of its matching source.
	OpRename Operation = "rename"

	// OpTimeSync copies a modification time onto a target entry.
	OpTimeSync Operation = "timesync"

	// OpOverwrite replaces a target file with a different source file of the same name.
	OpOverwrite Operation = "overwrite"

	// OpDelete removes a target entry without a source counterpart.
	OpDelete Operation = "delete"
)

// AllOperations returns every policy-governed operation.
func AllOperations() []Operation {
	return []Operation{OpRename, OpTimeSync, OpOverwrite, OpDelete}
}

// Policies holds the policy of each governed operation.
type Policies struct {
	Rename    Policy
	TimeSync  Policy
	Overwrite Policy
	Delete    Policy
}

// DefaultPolicies renames and syncs times freely and asks before destroying data.
func DefaultPolicies() Policies {
	return Policies{
		Rename:    PolicyAlways,
		TimeSync:  PolicyAlways,
		Overwrite: PolicyAsk,
		Delete:    PolicyAsk,
	}
}

// Uniform returns policies that apply p to every operation.
func Uniform(p Policy) Policies {
	return Policies{Rename: p, TimeSync: p, Overwrite: p, Delete: p}
}

// For returns the policy for op.
func (p Policies) For(op Operation) Policy {
	switch op {
	case OpRename:
		return p.Rename
	case OpTimeSync:
		return p.TimeSync
	case OpOverwrite:
		return p.Overwrite
	case OpDelete:
		return p.Delete
	default:
		return PolicyNever
	}
}

// Set changes the policy for op.
func (p *Policies) Set(op Operation, policy Policy) {
	switch op {
	case OpRename:
		p.Rename = policy
	case OpTimeSync:
		p.TimeSync = policy
	case OpOverwrite:
		p.Overwrite = policy
	case OpDelete:
		p.Delete = policy
	}
}

// Validate reports the first unrecognized policy.
func (p Policies) Validate() error {
	for _, op := range AllOperations() {
		if !p.For(op).IsValid() {
			return fmt.Errorf("invalid %s policy %q (valid: always, never, ask)", op, p.For(op))
		}
	}
	return nil
}

// Asks reports whether any operation uses PolicyAsk.
func (p Policies) Asks() bool {
	for _, op := range AllOperations() {
		if p.For(op) == PolicyAsk {
			return true
		}
	}
	return false
}

// Answer is a decision returned by a Decider.
type Answer int

const (
	// AnswerNo declines this operation.
	AnswerNo Answer = iota
	// AnswerYes approves this operation.
	AnswerYes
	// AnswerAlways approves this and every later operation of the same kind.
	AnswerAlways
	// AnswerNever declines this and every later operation of the same kind.
	AnswerNever
	// AnswerQuit stops the run.
	AnswerQuit
)

// String returns the answer name.
func (a Answer) String() string {
	switch a {
	case AnswerNo:
		return "no"
	case AnswerYes:
		return "yes"
	case AnswerAlways:
		return "always"
	case AnswerNever:
		return "never"
	case AnswerQuit:
		return "quit"
	default:
		return "unknown"
	}
}

// Question describes an operation awaiting a decision.
type Question struct {
	Op     Operation
	Source string
	Target string
}

// String renders the question as a prompt line.
func (q Question) String() string {
	switch q.Op {
	case OpRename:
		return fmt.Sprintf("Rename %s to %s?", q.Source, q.Target)
	case OpTimeSync:
		return fmt.Sprintf("Set modification time of %s from %s?", q.Target, q.Source)
	case OpOverwrite:
		return fmt.Sprintf("Overwrite %s with %s?", q.Target, q.Source)
	case OpDelete:
		return fmt.Sprintf("Delete %s?", q.Target)
	default:
		return fmt.Sprintf("%s %s?", q.Op, q.Target)
	}
}

// Decider answers questions for operations whose policy is PolicyAsk.
// Decide may block, for example on console input.
type Decider interface {
	Decide(ctx context.Context, q Question) (Answer, error)
}

// DeciderFunc adapts a function to the Decider interface.
type DeciderFunc func(ctx context.Context, q Question) (Answer, error)

// Decide implements Decider.
func (f DeciderFunc) Decide(ctx context.Context, q Question) (Answer, error) {
	return f(ctx, q)
}

// ErrQuit is returned by Run when the Decider answers AnswerQuit.
var ErrQuit = errors.New("sync stopped by user")

// resolver applies policies, remembering Always and Never answers for the
// rest of the run.
type resolver struct {
	policies Policies
	decider  Decider
}

func newResolver(p Policies, d Decider) *resolver {
	return &resolver{policies: p, decider: d}
}

// allow reports whether the operation in q may proceed.
func (r *resolver) allow(ctx context.Context, q Question) (bool, error) {
	switch r.policies.For(q.Op) {
	case PolicyAlways:
		return true, nil
	case PolicyNever:
		return false, nil
	}

	answer, err := r.decider.Decide(ctx, q)
	if err != nil {
		return false, fmt.Errorf("failed to ask about %s: %w", q.Op, err)
	}

	switch answer {
	case AnswerYes:
		return true, nil
	case AnswerAlways:
		r.policies.Set(q.Op, PolicyAlways)
		logging.Debug("policy changed", logging.Operation(string(q.Op)), logging.Policy(string(PolicyAlways)))
		return true, nil
	case AnswerNever:
		r.policies.Set(q.Op, PolicyNever)
		logging.Debug("policy changed", logging.Operation(string(q.Op)), logging.Policy(string(PolicyNever)))
		return false, nil
	case AnswerQuit:
		return false, ErrQuit
	default:
		return false, nil
	}
}
