// Package diagnostics inspects deployment platform services through the Render REST API.
package diagnostics

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Service is a deployed service as reported by the platform.
type Service struct {
	ID           string
	Name         string
	Type         string
	Status       string
	Suspended    string
	Region       string
	Plan         string
	BuildCommand string
	StartCommand string
	DashboardURL string
}

// Datastore is a managed Postgres or Redis instance.
type Datastore struct {
	ID              string
	Name            string
	Status          string
	Version         string
	Plan            string
	Region          string
	DatabaseName    string
	DatabaseUser    string
	MaxmemoryPolicy string
}

// LogEntry is a single service log line.
type LogEntry struct {
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type apiService struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	Status         string `json:"status"`
	Suspended      string `json:"suspended"`
	DashboardURL   string `json:"dashboardUrl"`
	ServiceDetails struct {
		Region             string `json:"region"`
		Plan               string `json:"plan"`
		EnvSpecificDetails struct {
			BuildCommand string `json:"buildCommand"`
			StartCommand string `json:"startCommand"`
		} `json:"envSpecificDetails"`
	} `json:"serviceDetails"`
}

func (a apiService) toService() Service {
	return Service{
		ID:           a.ID,
		Name:         a.Name,
		Type:         a.Type,
		Status:       a.Status,
		Suspended:    a.Suspended,
		Region:       a.ServiceDetails.Region,
		Plan:         a.ServiceDetails.Plan,
		BuildCommand: a.ServiceDetails.EnvSpecificDetails.BuildCommand,
		StartCommand: a.ServiceDetails.EnvSpecificDetails.StartCommand,
		DashboardURL: a.DashboardURL,
	}
}

type apiDatastore struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Status       string `json:"status"`
	Version      string `json:"version"`
	Plan         string `json:"plan"`
	Region       string `json:"region"`
	DatabaseName string `json:"databaseName"`
	DatabaseUser string `json:"databaseUser"`
	Options      struct {
		MaxmemoryPolicy string `json:"maxmemoryPolicy"`
	} `json:"options"`
}

func (a apiDatastore) toDatastore() Datastore {
	return Datastore{
		ID:              a.ID,
		Name:            a.Name,
		Status:          a.Status,
		Version:         a.Version,
		Plan:            a.Plan,
		Region:          a.Region,
		DatabaseName:    a.DatabaseName,
		DatabaseUser:    a.DatabaseUser,
		MaxmemoryPolicy: a.Options.MaxmemoryPolicy,
	}
}

type apiEnvVar struct {
	Key string `json:"key"`
}

// decodeList accepts the list shapes the platform uses: a bare array of
// cursor envelopes ([{"cursor":..,"<wrap>":{..}}]), a bare array of items, or
// an object holding either form under listKey.
func decodeList[T any](data []byte, wrap, listKey string) ([]T, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '{' {
		var obj map[string]json.RawMessage
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, fmt.Errorf("decode %s list: %w", listKey, err)
		}
		raw, ok := obj[listKey]
		if !ok {
			return nil, nil
		}
		return decodeList[T](raw, wrap, listKey)
	}

	var envelopes []map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelopes); err != nil {
		return nil, fmt.Errorf("decode %s list: %w", listKey, err)
	}
	out := make([]T, 0, len(envelopes))
	for _, env := range envelopes {
		raw, ok := env[wrap]
		if !ok {
			raw, _ = json.Marshal(env)
		}
		var item T
		if err := json.Unmarshal(raw, &item); err != nil {
			return nil, fmt.Errorf("decode %s: %w", wrap, err)
		}
		out = append(out, item)
	}
	return out, nil
}

func decodeServices(data []byte) ([]Service, error) {
	raw, err := decodeList[apiService](data, "service", "services")
	if err != nil {
		return nil, err
	}
	out := make([]Service, len(raw))
	for i, s := range raw {
		out[i] = s.toService()
	}
	return out, nil
}

func decodeDatastores(data []byte, wrap, listKey string) ([]Datastore, error) {
	raw, err := decodeList[apiDatastore](data, wrap, listKey)
	if err != nil {
		return nil, err
	}
	out := make([]Datastore, len(raw))
	for i, d := range raw {
		out[i] = d.toDatastore()
	}
	return out, nil
}
