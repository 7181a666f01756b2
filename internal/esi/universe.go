// Killfeed - zKillboard Kill Feed Subscription Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/killfeed

package esi

import (
	"context"
	"fmt"
	"net/http"
)

// System is GET /universe/systems/{id}/.
type System struct {
	SystemID        int64   `json:"system_id"`
	Name            string  `json:"name"`
	ConstellationID int64   `json:"constellation_id"`
	SecurityStatus  float64 `json:"security_status"`
}

// Constellation is GET /universe/constellations/{id}/.
type Constellation struct {
	ConstellationID int64  `json:"constellation_id"`
	Name            string `json:"name"`
	RegionID        int64  `json:"region_id"`
}

// Region is GET /universe/regions/{id}/.
type Region struct {
	RegionID int64  `json:"region_id"`
	Name     string `json:"name"`
}

// Type is GET /universe/types/{id}/.
type Type struct {
	TypeID  int64  `json:"type_id"`
	Name    string `json:"name"`
	GroupID int64  `json:"group_id"`
}

// Name is one entry of POST /universe/names/.
type Name struct {
	Category string `json:"category"`
	ID       int64  `json:"id"`
	Name     string `json:"name"`
}

// System fetches a solar system.
func (c *Client) System(ctx context.Context, id int64) (*System, error) {
	var out System
	if err := c.getJSON(ctx, "universe/systems", fmt.Sprintf("/universe/systems/%d/", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Constellation fetches a constellation.
func (c *Client) Constellation(ctx context.Context, id int64) (*Constellation, error) {
	var out Constellation
	if err := c.getJSON(ctx, "universe/constellations", fmt.Sprintf("/universe/constellations/%d/", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Region fetches a region.
func (c *Client) Region(ctx context.Context, id int64) (*Region, error) {
	var out Region
	if err := c.getJSON(ctx, "universe/regions", fmt.Sprintf("/universe/regions/%d/", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Type fetches an item type. For ships GroupID is the ship class.
func (c *Client) Type(ctx context.Context, id int64) (*Type, error) {
	var out Type
	if err := c.getJSON(ctx, "universe/types", fmt.Sprintf("/universe/types/%d/", id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Names resolves character, corporation, alliance and faction ids. ESI
// rejects the whole batch with 404 if any id is unknown.
func (c *Client) Names(ctx context.Context, ids []int64) ([]Name, error) {
	var out []Name
	if err := c.doJSON(ctx, http.MethodPost, "universe/names", "/universe/names/", ids, &out); err != nil {
		return nil, err
	}
	return out, nil
}
