// Container-sandboxed move generation
//
// Copyright (c) 2026  The weiqi-server contributors
//
// This file is part of weiqi-server.
//
// weiqi-server is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License,
// version 3, as published by the Free Software Foundation.
//
// weiqi-server is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the GNU
// Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public
// License, version 3, along with weiqi-server. If not, see
// <http://www.gnu.org/licenses/>

package enginepool

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/stdcopy"
	"github.com/pkg/errors"

	"weiqi-server/internal/boardgame"
	"weiqi-server/internal/session"
)

// moveRequest/moveResponse are the JSON messages piped to and read
// back from the sandboxed engine's stdin/stdout, the containerized
// generalization of the teacher's TCP agent protocol.
type moveRequest struct {
	Board       *boardgame.Board `json:"board"`
	Color       string           `json:"color"`
	KoPosition  boardgame.Position `json:"koPosition"`
	HasKo       bool             `json:"hasKo"`
}

type moveResponse struct {
	X    int  `json:"x"`
	Y    int  `json:"y"`
	Pass bool `json:"pass"`
}

// DockerPool runs one short-lived container per move request, the
// same CPU/memory-quota and warmup-deadline discipline the teacher's
// isolation layer applied to untrusted agent binaries, adapted from a
// long-lived connection to a run-per-request container since a
// sandboxed move generator has no reason to stay resident between
// turns.
type DockerPool struct {
	cli        *client.Client
	image      string
	cpuQuota   int64 // CPU-nanos per second, docker's NanoCPUs unit
	memoryMB   int64
	warmup     time.Duration
}

// NewDockerPool connects to the local Docker daemon and configures the
// resource quota every spawned container is constrained to. cpuQuota
// is a number of CPUs and is converted to docker's NanoCPUs unit.
func NewDockerPool(image string, cpuQuota, memoryMB int64) (*DockerPool, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "enginepool: connect to docker daemon")
	}
	return &DockerPool{cli: cli, image: image, cpuQuota: cpuQuota * 1e9, memoryMB: memoryMB, warmup: WarmupTimeout}, nil
}

// RequestMove implements session.EnginePool by running the configured
// image once, feeding it the board position on stdin and reading back
// a single JSON move response from stdout.
func (p *DockerPool) RequestMove(ctx context.Context, g *session.GameState, color boardgame.Color) (x, y int, pass bool, err error) {
	wctx, cancel := context.WithTimeout(ctx, p.warmup)
	defer cancel()

	resp, err := p.cli.ContainerCreate(wctx, &container.Config{
		Image:        p.image,
		OpenStdin:    true,
		AttachStdin:  true,
		AttachStdout: true,
		Tty:          false,
	}, &container.HostConfig{
		AutoRemove: true,
		Resources: container.Resources{
			NanoCPUs: p.cpuQuota,
			Memory:   p.memoryMB * 1024 * 1024,
		},
	}, nil, nil, "")
	if err != nil {
		return 0, 0, true, errors.Wrap(err, "enginepool: create container")
	}
	defer p.cli.ContainerRemove(context.Background(), resp.ID, types.ContainerRemoveOptions{Force: true})

	hijack, err := p.cli.ContainerAttach(wctx, resp.ID, types.ContainerAttachOptions{
		Stream: true, Stdin: true, Stdout: true, Stderr: true,
	})
	if err != nil {
		return 0, 0, true, errors.Wrap(err, "enginepool: attach container")
	}
	defer hijack.Close()

	if err := p.cli.ContainerStart(wctx, resp.ID, types.ContainerStartOptions{}); err != nil {
		return 0, 0, true, errors.Wrap(err, "enginepool: start container")
	}

	req := moveRequest{Board: g.Board, Color: color.String(), KoPosition: g.KoPosition, HasKo: g.HasKo}
	reqData, err := json.Marshal(req)
	if err != nil {
		return 0, 0, true, errors.Wrap(err, "enginepool: encode move request")
	}
	if _, err := hijack.Conn.Write(append(reqData, '\n')); err != nil {
		return 0, 0, true, errors.Wrap(err, "enginepool: write move request")
	}
	hijack.CloseWrite()

	waitCh, errCh := p.cli.ContainerWait(wctx, resp.ID, container.WaitConditionNotRunning)
	select {
	case werr := <-errCh:
		return 0, 0, true, errors.Wrap(werr, "enginepool: wait for container")
	case <-waitCh:
	case <-wctx.Done():
		return 0, 0, true, errors.Wrap(wctx.Err(), "enginepool: warmup deadline exceeded")
	}

	var stdout, stderr bytes.Buffer
	if _, err := stdcopy.StdCopy(&stdout, &stderr, io.LimitReader(hijack.Reader, 1<<16)); err != nil && err != io.EOF {
		return 0, 0, true, errors.Wrap(err, "enginepool: demux container output")
	}

	var mv moveResponse
	if err := json.Unmarshal(bytes.TrimSpace(stdout.Bytes()), &mv); err != nil {
		return 0, 0, true, errors.Wrapf(err, "enginepool: decode move response: %s", stderr.String())
	}
	return mv.X, mv.Y, mv.Pass, nil
}

var _ session.EnginePool = (*DockerPool)(nil)
