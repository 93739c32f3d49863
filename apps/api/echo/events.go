package echoapi

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/bitacora/core/compliance"
)

type snapshotEvent struct {
	Version      uint64             `json:"version"`
	TeacherCount int                `json:"teacherCount"`
	Summary      compliance.Summary `json:"summary"`
}

// events streams a "snapshot" server-sent event on connect and after every change of the owner's data.
func (api *complianceApi) events(ctx echo.Context) error {
	owner, snap, err := api.snapshot(ctx)
	if err != nil {
		return err
	}
	reqCtx := ctx.Request().Context()

	// only the latest snapshot matters to a slow client
	updates := make(chan *compliance.Snapshot, 1)
	unsubscribe := api.svc.Subscribe(func(s *compliance.Snapshot) {
		if s.Owner != owner.ID {
			return
		}
		select {
		case <-updates:
		default:
		}
		select {
		case updates <- s:
		default:
		}
	})
	defer unsubscribe()

	go func() {
		if err := api.svc.Watch(reqCtx, owner.ID); err != nil {
			api.logger.Error("watching remote changes", err, owner)
		}
	}()

	resp := ctx.Response()
	resp.Header().Set(echo.HeaderContentType, "text/event-stream")
	resp.Header().Set("Cache-Control", "no-cache")
	resp.Header().Set("Connection", "keep-alive")
	resp.WriteHeader(http.StatusOK)

	for {
		if err = writeSnapshotEvent(resp, snap); err != nil {
			return errors.Wrap(err, "writing event")
		}
		select {
		case <-reqCtx.Done():
			return nil
		case snap = <-updates:
		}
	}
}

func writeSnapshotEvent(resp *echo.Response, snap *compliance.Snapshot) error {
	data, err := json.Marshal(snapshotEvent{
		Version:      snap.Version,
		TeacherCount: len(snap.Teachers),
		Summary:      snap.Summary(),
	})
	if err != nil {
		return err
	}
	if _, err = fmt.Fprintf(resp, "event: snapshot\ndata: %s\n\n", data); err != nil {
		return err
	}
	resp.Flush()
	return nil
}
