package model

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// PomodoroPreferences is the timer section of a user's preferences.
type PomodoroPreferences struct {
	WorkDuration      int `json:"work_duration"`
	BreakDuration     int `json:"break_duration"`
	LongBreakDuration int `json:"long_break_duration"`
	LongBreakInterval int `json:"long_break_interval"`
}

// DefaultPomodoroPreferences returns the timer settings used when a user
// has never saved any.
func DefaultPomodoroPreferences() PomodoroPreferences {
	return PomodoroPreferences{
		WorkDuration:      25,
		BreakDuration:     5,
		LongBreakDuration: 15,
		LongBreakInterval: 4,
	}
}

// Preferences models the users.preferences JSONB column as known, typed
// sections plus an open extension map. Unknown sections survive a
// read-modify-write cycle untouched.
type Preferences struct {
	Pomodoro *PomodoroPreferences
	Extra    map[string]json.RawMessage
}

func (p Preferences) MarshalJSON() ([]byte, error) {
	out := make(map[string]json.RawMessage, len(p.Extra)+1)
	for k, v := range p.Extra {
		out[k] = v
	}
	if p.Pomodoro != nil {
		b, err := json.Marshal(p.Pomodoro)
		if err != nil {
			return nil, err
		}
		out["pomodoro"] = b
	}
	return json.Marshal(out)
}

func (p *Preferences) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Pomodoro = nil
	p.Extra = nil
	for k, v := range raw {
		if k == "pomodoro" {
			var pomo PomodoroPreferences
			if err := json.Unmarshal(v, &pomo); err != nil {
				return err
			}
			p.Pomodoro = &pomo
			continue
		}
		if p.Extra == nil {
			p.Extra = make(map[string]json.RawMessage)
		}
		p.Extra[k] = v
	}
	return nil
}

// Value implements driver.Valuer for JSONB serialization
func (p Preferences) Value() (driver.Value, error) {
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB deserialization
func (p *Preferences) Scan(value interface{}) error {
	if value == nil {
		*p = Preferences{}
		return nil
	}

	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("failed to unmarshal Preferences: not a byte slice")
	}

	return json.Unmarshal(bytes, p)
}

type User struct {
	ID           string      `gorm:"type:uuid;primary_key;default:gen_random_uuid()" json:"id"`
	Email        string      `gorm:"not null;size:255" json:"email"`
	Username     string      `gorm:"not null;size:50;uniqueIndex" json:"username"`
	PasswordHash string      `gorm:"size:255" json:"-"`
	IsActive     bool        `gorm:"not null;default:true" json:"is_active"`
	LastLogin    *time.Time  `json:"last_login"`
	Preferences  Preferences `gorm:"type:jsonb;not null;default:'{}'" json:"preferences"`
	Provider     string      `gorm:"size:20" json:"-"`
	ProviderID   string      `gorm:"size:255" json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}
