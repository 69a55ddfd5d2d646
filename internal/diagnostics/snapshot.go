package diagnostics

import (
	"encoding/json"
	"fmt"
	"io"
)

// Snapshot is a saved dump of the platform inventory.
type Snapshot struct {
	Services []Service
	Postgres []Datastore
	Redis    []Datastore
}

// LoadSnapshot decodes a {"services","postgres","redis"} document as written
// by the platform API list endpoints.
func LoadSnapshot(r io.Reader) (*Snapshot, error) {
	var raw struct {
		Services json.RawMessage `json:"services"`
		Postgres json.RawMessage `json:"postgres"`
		Redis    json.RawMessage `json:"redis"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}

	services, err := decodeServices(raw.Services)
	if err != nil {
		return nil, err
	}
	pg, err := decodeDatastores(raw.Postgres, "postgres", "databases")
	if err != nil {
		return nil, err
	}
	rd, err := decodeDatastores(raw.Redis, "redis", "redis")
	if err != nil {
		return nil, err
	}
	return &Snapshot{Services: services, Postgres: pg, Redis: rd}, nil
}
