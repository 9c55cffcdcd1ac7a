package http

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type CreateDecisionRequest struct {
	Kind             string   `json:"kind"`
	Title            string   `json:"title"`
	Description      string   `json:"description,omitempty"`
	Amount           float64  `json:"amount,omitempty"`
	ProposedBudget   *float64 `json:"proposed_budget,omitempty"`
	ProposedDeadline string   `json:"proposed_deadline,omitempty"`
}

type SubmitVoteRequest struct {
	Vote   string `json:"vote"`
	Reason string `json:"reason,omitempty"`
}

type VotesSummary struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Pending  int `json:"pending"`
	Total    int `json:"total"`
}

type DecisionResponse struct {
	DecisionID       string       `json:"decision_id"`
	ProjectID        string       `json:"project_id"`
	Kind             string       `json:"kind"`
	Status           string       `json:"status"`
	RequestedBy      string       `json:"requested_by"`
	Title            string       `json:"title"`
	Description      string       `json:"description,omitempty"`
	Amount           float64      `json:"amount,omitempty"`
	ProposedBudget   *float64     `json:"proposed_budget,omitempty"`
	ProposedDeadline string       `json:"proposed_deadline,omitempty"`
	Votes            VotesSummary `json:"votes"`
	RejectedBy       string       `json:"rejected_by,omitempty"`
	RejectionReason  string       `json:"rejection_reason,omitempty"`
	RejectedAt       string       `json:"rejected_at,omitempty"`
	CreatedAt        string       `json:"created_at"`
}

type DecisionListResponse struct {
	Items []DecisionResponse `json:"items"`
}
