package services

import (
	"strings"

	"github.com/HassanBaig007/Investor-app-sub002/contexts/project-governance/decision-engine/domain/entities"
)

// CanVote is the single eligibility capability check: active project
// membership, or a privileged global role that bypasses membership. The state
// machine never inspects role names directly.
func CanVote(voterID string, role entities.Role, members []entities.Member) bool {
	if role.Privileged() {
		return true
	}
	voterID = strings.TrimSpace(voterID)
	for _, member := range members {
		if member.Eligible && strings.EqualFold(strings.TrimSpace(member.UserID), voterID) {
			return true
		}
	}
	return false
}
