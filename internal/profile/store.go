// Package profile persists user profiles and their uploaded résumés.
package profile

import (
	"context"
	"time"

	"careercoach/internal/types"
)

// Profile is what the app knows about one user
type Profile struct {
	UserID     string           `json:"userId"`
	Name       string           `json:"name,omitempty"`
	AvatarURL  string           `json:"avatarUrl,omitempty"`
	CareerPath string           `json:"careerPath,omitempty"`
	Resume     *types.ResumeRef `json:"resume,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	UpdatedAt  time.Time        `json:"updatedAt"`
}

// Store persists profiles. Lookups of unknown users return (nil, nil).
type Store interface {
	GetProfile(ctx context.Context, userID string) (*Profile, error)
	// SaveProfile creates or updates the profile fields, leaving the résumé as is
	SaveProfile(ctx context.Context, p *Profile) error
	// SaveResume replaces the résumé of userID, creating the profile if needed
	SaveResume(ctx context.Context, userID string, ref *types.ResumeRef) error
	GetResumeReference(ctx context.Context, userID string) (*types.ResumeRef, error)
	DeleteProfile(ctx context.Context, userID string) error
	Ping(ctx context.Context) error
	Close() error
}
