// Package notification delivers the two emails of the approval protocol:
// the request mail carrying the token links to the supervisor, and the
// result mail back to the student after a decision.
package notification

import "context"

// RecordSummary is the slice of a log entry an email may show
type RecordSummary struct {
	WorkDate string
	Activity string
	Hours    string
}

// ApprovalRequest is everything the request-to-approver email needs
type ApprovalRequest struct {
	ApproverName  string
	ApproverEmail string
	StudentName   string
	RequestKind   string
	ApproveURL    string
	RejectURL     string
	ExpiresAt     string
	Records       []RecordSummary
}

// DecisionResult is everything the result-to-student email needs
type DecisionResult struct {
	StudentName  string
	StudentEmail string
	Outcome      string
	Comment      string
	RecordCount  int
	Sample       *RecordSummary
}

// Gateway sends approval protocol emails. Delivery happens after the
// decision transaction commits and is best-effort: a failed send is logged
// by the caller, never rolled back into the decision.
type Gateway interface {
	SendApprovalRequest(ctx context.Context, req ApprovalRequest) error
	SendDecisionResult(ctx context.Context, res DecisionResult) error
}
