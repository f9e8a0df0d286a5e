// Copyright (c) 2026 The photonlab hardware developers. All rights reserved.
// Project site: https://github.com/photonlab/hardware
// Use of this source code is governed by a MIT-style license that
// can be found in the LICENSE.txt file for the project.

package rotation

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// Client talks to a rotationd instance over HTTP. Moves commanded
// through the client block server-side until the stage settles, so a
// returned nil means the stage is at the requested position.
type Client struct {
	base string
	http *http.Client
}

// NewClient returns a client for the rotationd at base, e.g.
// "http://spinner.lab.internal:8080".
func NewClient(base string) *Client {
	return &Client{
		base: strings.TrimRight(base, "/"),
		// Moves block until the stage settles, which at the slowest
		// velocities takes minutes.
		http: &http.Client{Timeout: 5 * time.Minute},
	}
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "GET %s", path)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("GET %s: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	if out == nil {
		return nil
	}
	return errors.Wrapf(json.NewDecoder(resp.Body).Decode(out), "decoding response to GET %s", path)
}

// Angle returns the absolute stage position in degrees.
func (c *Client) Angle(ctx context.Context) (float64, error) {
	var out struct {
		Angle float64 `json:"angle"`
	}
	if err := c.get(ctx, "/rot/angle", &out); err != nil {
		return 0, err
	}
	return out.Angle, nil
}

// MoveTo rotates the stage to an absolute angle in degrees.
func (c *Client) MoveTo(ctx context.Context, deg float64) error {
	return c.get(ctx, fmt.Sprintf("/rot/angle/%G", deg), nil)
}

// CW rotates the stage clockwise through an angle in degrees.
func (c *Client) CW(ctx context.Context, deg float64) error {
	return c.get(ctx, fmt.Sprintf("/rot/cw/%G", deg), nil)
}

// CCW rotates the stage counterclockwise through an angle in degrees.
func (c *Client) CCW(ctx context.Context, deg float64) error {
	return c.get(ctx, fmt.Sprintf("/rot/ccw/%G", deg), nil)
}

// Velocity returns the stage slew velocity in deg/s.
func (c *Client) Velocity(ctx context.Context) (float64, error) {
	var out struct {
		Velocity float64 `json:"velocity"`
	}
	if err := c.get(ctx, "/rot/velocity", &out); err != nil {
		return 0, err
	}
	return out.Velocity, nil
}

// SetVelocity sets the stage slew velocity in deg/s.
func (c *Client) SetVelocity(ctx context.Context, degPerSec float64) error {
	return c.get(ctx, fmt.Sprintf("/rot/velocity/%G", degPerSec), nil)
}

// Stop halts any move in progress.
func (c *Client) Stop(ctx context.Context) error {
	return c.get(ctx, "/rot/stop", nil)
}
