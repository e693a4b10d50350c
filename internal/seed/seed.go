// Package seed loads registered applications and resource owners from YAML.
package seed

import (
	"fmt"
	"os"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/jrsteele09/go-jwt-grant/clients"
	"github.com/jrsteele09/go-jwt-grant/users"
)

// File is the seed document.
//
//	applications:
//	  - uid: billing
//	    secret: s3cret
//	    scopes: [read]
//	resource_owners:
//	  - username: alice
//	    email: alice@example.com
//	    password: Passw0rd!
type File struct {
	Applications   []clients.Client `yaml:"applications"`
	ResourceOwners []ResourceOwner  `yaml:"resource_owners"`
}

// ResourceOwner is a seeded user. Password is hashed before it is stored.
type ResourceOwner struct {
	ID        string `yaml:"id"`
	Username  string `yaml:"username"`
	Email     string `yaml:"email"`
	Password  string `yaml:"password"`
	FirstName string `yaml:"first_name"`
	LastName  string `yaml:"last_name"`
	Blocked   bool   `yaml:"blocked"`
}

// Result counts what was loaded.
type Result struct {
	Applications   int
	ResourceOwners int
}

// LoadFile reads path and upserts its contents into the repositories.
func LoadFile(path string, clientRepo clients.Repo, userRepo users.UserRepo) (Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("reading seed file: %w", err)
	}
	return Load(data, clientRepo, userRepo)
}

// Load parses a seed document and upserts it. Unknown keys are rejected.
func Load(data []byte, clientRepo clients.Repo, userRepo users.UserRepo) (Result, error) {
	var f File
	if err := yaml.UnmarshalWithOptions(data, &f, yaml.Strict()); err != nil {
		return Result{}, fmt.Errorf("parsing seed file: %w", err)
	}

	var result Result
	now := time.Now().UTC()
	for i := range f.Applications {
		app := f.Applications[i]
		if app.UID == "" || app.Secret == "" {
			return result, fmt.Errorf("application %d: uid and secret are required", i)
		}
		app.CreatedAt = now
		if err := clientRepo.Upsert(&app); err != nil {
			return result, fmt.Errorf("storing application %q: %w", app.UID, err)
		}
		result.Applications++
	}

	for i, owner := range f.ResourceOwners {
		if owner.Username == "" && owner.Email == "" {
			return result, fmt.Errorf("resource owner %d: username or email is required", i)
		}
		user := &users.User{
			ID:         owner.ID,
			Username:   owner.Username,
			Email:      owner.Email,
			FirstName:  owner.FirstName,
			LastName:   owner.LastName,
			DateJoined: now,
			Blocked:    owner.Blocked,
		}
		if owner.Password != "" {
			if err := users.ValidatePasswordStrength(owner.Password); err != nil {
				return result, fmt.Errorf("resource owner %d: %w", i, err)
			}
			hash, err := users.HashPassword(owner.Password)
			if err != nil {
				return result, fmt.Errorf("hashing password of resource owner %d: %w", i, err)
			}
			user.PasswordHash = hash
		}
		if err := userRepo.Upsert(user); err != nil {
			return result, fmt.Errorf("storing resource owner %d: %w", i, err)
		}
		result.ResourceOwners++
	}
	return result, nil
}
