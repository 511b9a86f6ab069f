// Package policy decides what a principal may see and do.
package policy

import (
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/auth"
)

// ProjectUser returns the full record to admins and the public card to everyone else.
func ProjectUser(u model.User, viewer auth.Role) model.UserView {
	if viewer != auth.RoleAdmin {
		return model.UserView{
			Username:     u.Username,
			City:         u.City,
			ProfilePhoto: u.ProfilePhoto,
		}
	}
	return full(u)
}

// ProjectSelf is the view a user gets of their own record.
func ProjectSelf(u model.User) model.UserView {
	return full(u)
}

func full(u model.User) model.UserView {
	id, email, role, active := u.ID, u.Email, u.Role, u.IsActive
	return model.UserView{
		ID:           &id,
		Username:     u.Username,
		Email:        &email,
		City:         u.City,
		Role:         &role,
		IsActive:     &active,
		ProfilePhoto: u.ProfilePhoto,
	}
}

func ProjectUsers(users []model.User, viewer auth.Role) []model.UserView {
	views := make([]model.UserView, 0, len(users))
	for _, u := range users {
		views = append(views, ProjectUser(u, viewer))
	}
	return views
}

// ProjectBook is the same for every role.
func ProjectBook(b model.Book) model.Book {
	return b
}

func CanManage(p auth.Principal) bool {
	return p.IsAdmin()
}

// LoanScope limits non-admins to their own loans.
func LoanScope(p auth.Principal, openOnly bool) model.LoanFilter {
	f := model.LoanFilter{OpenOnly: openOnly}
	if !p.IsAdmin() {
		id := p.ID
		f.UserID = &id
	}
	return f
}
