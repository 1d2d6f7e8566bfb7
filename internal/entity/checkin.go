package entity

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"
)

// Checkin is one venue check-in with its free-text shout.
type Checkin struct {
	ID           string
	UserID       string
	UserFirst    string
	UserLast     string
	VenueID      string
	VenueName    string
	City         string
	State        string
	Zip          string
	CategoryID   string
	CategoryName string
	Shout        string
	// LocalTime is the check-in time shifted into the venue's time zone.
	LocalTime time.Time
}

// Weekday returns the ISO weekday of the local time, Monday = 1.
func (c Checkin) Weekday() int {
	wd := int(c.LocalTime.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

type rawCheckin struct {
	ID    string  `json:"id"`
	Shout *string `json:"shout"`
	User  *struct {
		ID        string `json:"id"`
		FirstName string `json:"firstName"`
		LastName  string `json:"lastName"`
	} `json:"user"`
	Venue *struct {
		ID       string `json:"id"`
		Name     string `json:"name"`
		Location struct {
			City       string `json:"city"`
			State      string `json:"state"`
			PostalCode string `json:"postalCode"`
		} `json:"location"`
		Categories []struct {
			ID   string `json:"id"`
			Name string `json:"name"`
		} `json:"categories"`
	} `json:"venue"`
	CreatedAt      *int64 `json:"createdAt"`
	TimeZoneOffset int64  `json:"timeZoneOffset"`
}

// ParseCheckin decodes one check-in object as returned by the check-in API.
func ParseCheckin(data []byte) (Checkin, error) {
	var raw rawCheckin
	if err := json.Unmarshal(data, &raw); err != nil {
		return Checkin{}, err
	}
	switch {
	case raw.ID == "":
		return Checkin{}, fmt.Errorf("missing id")
	case raw.User == nil || raw.User.ID == "":
		return Checkin{}, fmt.Errorf("checkin %s: missing user", raw.ID)
	case raw.Venue == nil || raw.Venue.ID == "":
		return Checkin{}, fmt.Errorf("checkin %s: missing venue", raw.ID)
	case raw.Shout == nil:
		return Checkin{}, fmt.Errorf("checkin %s: missing shout", raw.ID)
	case raw.CreatedAt == nil:
		return Checkin{}, fmt.Errorf("checkin %s: missing createdAt", raw.ID)
	}

	c := Checkin{
		ID:        raw.ID,
		UserID:    raw.User.ID,
		UserFirst: raw.User.FirstName,
		UserLast:  raw.User.LastName,
		VenueID:   raw.Venue.ID,
		VenueName: raw.Venue.Name,
		City:      raw.Venue.Location.City,
		State:     raw.Venue.Location.State,
		Zip:       raw.Venue.Location.PostalCode,
		Shout:     *raw.Shout,
		LocalTime: time.Unix(*raw.CreatedAt+60*raw.TimeZoneOffset, 0).UTC(),
	}
	if len(raw.Venue.Categories) > 0 {
		c.CategoryID = raw.Venue.Categories[0].ID
		c.CategoryName = raw.Venue.Categories[0].Name
	}
	return c, nil
}

// DecodeCheckins parses one check-in per line of r and passes each to fn.
// Malformed lines are logged and counted, not returned.
func DecodeCheckins(ctx context.Context, r io.Reader, fn func(Checkin) error) (loaded, skipped int, err error) {
	logger := slog.Default().With("component", "entity")
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	line := 0
	for scanner.Scan() {
		line++
		if err := ctx.Err(); err != nil {
			return loaded, skipped, err
		}
		if len(scanner.Bytes()) == 0 {
			continue
		}
		c, perr := ParseCheckin(scanner.Bytes())
		if perr != nil {
			skipped++
			logger.Warn("skipping checkin", "line", line, "error", perr)
			continue
		}
		if err := fn(c); err != nil {
			return loaded, skipped, err
		}
		loaded++
	}
	if err := scanner.Err(); err != nil {
		return loaded, skipped, fmt.Errorf("reading checkins: %w", err)
	}
	return loaded, skipped, nil
}
