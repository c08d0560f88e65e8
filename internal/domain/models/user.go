// internal/domain/models/user.go
package models

import "time"

// User mirrors an identity-provider account plus the profile and relationship
// lists owned by this app.
//
// NOTE:
//   - ID is the identity provider's user id (a string such as "user_2abc..."),
//     not an ObjectID.
//   - Followers/Following are one-directional; Connections is symmetric and only
//     changes when a connection is accepted or removed.
type User struct {
	ID           string `bson:"_id" json:"id"`
	Email        string `bson:"email" json:"email"`
	Name         string `bson:"name" json:"name"`
	Handle       string `bson:"handle" json:"handle"`
	HandleCI     string `bson:"handle_ci" json:"-"` // folded for unique lookups
	Bio          string `bson:"bio,omitempty" json:"bio,omitempty"`
	ProfileImage string `bson:"profile_image,omitempty" json:"profile_image,omitempty"`
	CoverImage   string `bson:"cover_image,omitempty" json:"cover_image,omitempty"`
	Location     string `bson:"location,omitempty" json:"location,omitempty"`

	Followers   []string `bson:"followers" json:"followers"`
	Following   []string `bson:"following" json:"following"`
	Connections []string `bson:"connections" json:"connections"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// UserSummary is the public card shown in lists and notification payloads.
type UserSummary struct {
	ID           string `bson:"_id" json:"id"`
	Name         string `bson:"name" json:"name"`
	Handle       string `bson:"handle" json:"handle"`
	ProfileImage string `bson:"profile_image,omitempty" json:"profile_image,omitempty"`
	Bio          string `bson:"bio,omitempty" json:"bio,omitempty"`
}

// Summary returns the public card for u.
func (u User) Summary() UserSummary {
	return UserSummary{
		ID:           u.ID,
		Name:         u.Name,
		Handle:       u.Handle,
		ProfileImage: u.ProfileImage,
		Bio:          u.Bio,
	}
}

// HasConnection reports whether other is in u's connections list.
func (u User) HasConnection(other string) bool {
	return contains(u.Connections, other)
}

// IsFollowing reports whether u follows other.
func (u User) IsFollowing(other string) bool {
	return contains(u.Following, other)
}

// Network returns the ids whose content u sees: u, everyone u follows, and u's
// connections, without duplicates.
func (u User) Network() []string {
	seen := make(map[string]struct{}, 1+len(u.Following)+len(u.Connections))
	out := make([]string, 0, 1+len(u.Following)+len(u.Connections))
	add := func(id string) {
		if id == "" {
			return
		}
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	add(u.ID)
	for _, id := range u.Following {
		add(id)
	}
	for _, id := range u.Connections {
		add(id)
	}
	return out
}

func contains(list []string, id string) bool {
	for _, v := range list {
		if v == id {
			return true
		}
	}
	return false
}
