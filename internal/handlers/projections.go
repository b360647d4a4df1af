package handlers

import "github.com/membernet/backend/internal/models"

// memberView is the display-safe projection of a member record returned by
// every member-facing endpoint. Credential fields never appear here.
type memberView struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

func projectMember(member models.Member) memberView {
	return memberView{
		ID:        member.ID,
		Username:  member.Username,
		FirstName: member.FirstName,
		LastName:  member.LastName,
		AvatarURL: member.AvatarURL,
	}
}

func projectMembers(members []models.Member) []memberView {
	views := make([]memberView, 0, len(members))
	for _, member := range members {
		views = append(views, projectMember(member))
	}
	return views
}
