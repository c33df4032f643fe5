package permissions

import "time"

// CreateRequest registers one permission.
type CreateRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Description string `json:"description" validate:"max=255"`
}

// BulkCreateRequest registers several permissions in one atomic write.
type BulkCreateRequest struct {
	Permissions []CreateRequest `json:"permissions" validate:"required,min=1,max=100,dive"`
}

// Response is the API shape of one permission.
type Response struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Resource    string    `json:"resource"`
	Action      string    `json:"action"`
	Label       string    `json:"label"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func toResponse(p Permission) Response {
	return Response{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    p.Resource,
		Action:      p.Action,
		Label:       DisplayLabel(p.Name),
		Description: p.Description,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func toResponses(perms []Permission) []Response {
	out := make([]Response, 0, len(perms))
	for _, p := range perms {
		out = append(out, toResponse(p))
	}
	return out
}
