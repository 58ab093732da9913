// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

package registry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tomtom215/subrewind/internal/config"
	"github.com/tomtom215/subrewind/internal/models"
	"github.com/tomtom215/subrewind/internal/plex"
)

type fakeLister struct {
	container *models.SessionContainer
	err       error
}

func (f *fakeLister) Sessions(_ context.Context) (*models.SessionContainer, error) {
	return f.container, f.err
}

type fakePoller struct {
	snap  *plex.TimelineSnapshot
	err   error
	calls int
}

func (f *fakePoller) PollTimeline(_ context.Context, _, _, _ string) (*plex.TimelineSnapshot, error) {
	f.calls++
	return f.snap, f.err
}

// trackingHooks records create and retire callbacks.
type trackingHooks struct {
	created []string
	retired []string
}

func (h *trackingHooks) hooks() Hooks {
	return Hooks{
		OnCreate: func(s *PlaybackSession) { h.created = append(h.created, s.PlaybackID) },
		OnRetire: func(id string) { h.retired = append(h.retired, id) },
	}
}

func testVideo(playbackID string, viewOffset int64) models.VideoSession {
	return models.VideoSession{
		SessionKey: "7",
		Title:      "Pilot",
		ViewOffset: viewOffset,
		Player: models.Player{
			MachineIdentifier: "machine-" + playbackID,
			Title:             "Living Room TV",
			Address:           "192.168.1.50",
			Port:              "32500",
			PlaybackID:        playbackID,
			State:             models.PlayerStatePlaying,
		},
		Media: []models.Media{{
			Parts: []models.Part{{
				Streams: []models.Stream{
					{ID: "402", StreamType: models.StreamTypeSubtitle, Language: "English",
						ExtendedDisplayTitle: "English (SRT External)", Key: "/library/streams/402"},
					{ID: "403", StreamType: models.StreamTypeSubtitle, Language: "English",
						ExtendedDisplayTitle: "English SDH (ASS)"},
				},
			}},
		}},
	}
}

func containerWith(videos ...models.VideoSession) *models.SessionContainer {
	return &models.SessionContainer{Size: len(videos), Videos: videos}
}

func newTestRegistry(lister SessionLister, poller TimelinePoller, hooks Hooks) *Registry {
	cfg := &config.Config{}
	cfg.Subtitles.Preferences = []string{"english", "-sdh"}
	cfg.Subtitles.PreferExternal = true
	cfg.Monitor.SessionGrace = 15 * time.Second
	return New(lister, poller, cfg, hooks)
}

func TestRefreshCreatesSession(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{snap: &plex.TimelineSnapshot{TimeMS: 120450, SubtitleStreamID: "0", State: "playing"}}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, poller, hooks.hooks())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if len(hooks.created) != 1 || hooks.created[0] != "pb-1" {
		t.Errorf("created hooks = %v, want [pb-1]", hooks.created)
	}

	s, ok := r.Get("pb-1")
	if !ok {
		t.Fatal("Get(pb-1) not found")
	}
	if s.PreferredSubtitle == nil || s.PreferredSubtitle.ID != "402" {
		t.Errorf("PreferredSubtitle = %+v, want id 402 (external, not SDH)", s.PreferredSubtitle)
	}
	if s.AccurateTimeMS == nil || *s.AccurateTimeMS != 120450 {
		t.Errorf("AccurateTimeMS = %v, want 120450", s.AccurateTimeMS)
	}
	if s.KnownSubsOn != TriFalse {
		t.Errorf("KnownSubsOn = %v, want TriFalse (stream id 0)", s.KnownSubsOn)
	}
	if s.BestPositionMS() != 120450 {
		t.Errorf("BestPositionMS() = %d, want 120450", s.BestPositionMS())
	}
}

func TestRefreshUpdatesInPlace(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{snap: &plex.TimelineSnapshot{TimeMS: 120450, SubtitleStreamID: "42"}}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, poller, hooks.hooks())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("first Refresh() error = %v", err)
	}

	lister.container = containerWith(testVideo("pb-1", 125000))
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh() error = %v", err)
	}

	if len(hooks.created) != 1 {
		t.Errorf("created hooks = %v, want exactly one create", hooks.created)
	}
	s, _ := r.Get("pb-1")
	if s.ViewOffsetMS != 125000 {
		t.Errorf("ViewOffsetMS = %d, want 125000", s.ViewOffsetMS)
	}
	if s.KnownSubsOn != TriTrue {
		t.Errorf("KnownSubsOn = %v, want TriTrue", s.KnownSubsOn)
	}
}

func TestRefreshFailedTimelineClearsAccuracy(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{snap: &plex.TimelineSnapshot{TimeMS: 120450, SubtitleStreamID: "42"}}
	r := newTestRegistry(lister, poller, Hooks{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Device stops answering: accuracy degrades to unknown.
	poller.snap = nil
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	s, _ := r.Get("pb-1")
	if s.AccurateTimeMS != nil {
		t.Errorf("AccurateTimeMS = %v, want nil", s.AccurateTimeMS)
	}
	if s.KnownSubsOn != TriUnknown {
		t.Errorf("KnownSubsOn = %v, want TriUnknown", s.KnownSubsOn)
	}
	if s.BestPositionMS() != 120000 {
		t.Errorf("BestPositionMS() = %d, want view offset 120000", s.BestPositionMS())
	}
}

func TestRefreshErrorLeavesRegistryUntouched(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{}
	r := newTestRegistry(lister, poller, Hooks{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	lister.err = errors.New("boom")
	lister.container = nil
	if err := r.Refresh(context.Background()); err == nil {
		t.Fatal("Refresh() error = nil, want error")
	}

	if r.Len() != 1 {
		t.Errorf("Len() after failed refresh = %d, want 1", r.Len())
	}
	s, _ := r.Get("pb-1")
	if !s.LastSeen.IsZero() {
		t.Error("failed refresh started the grace period, want untouched")
	}
}

func TestGracePeriodRetirement(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, poller, hooks.hooks())

	current := time.Unix(1000, 0)
	r.now = func() time.Time { return current }

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	// Session vanishes: first absent refresh stamps LastSeen, keeps entry.
	lister.container = containerWith()
	current = current.Add(5 * time.Second)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() after first absence = %d, want 1", r.Len())
	}
	if len(hooks.retired) != 0 {
		t.Fatalf("retired = %v, want none within grace", hooks.retired)
	}

	// Still absent but within grace: survives.
	current = current.Add(10 * time.Second)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("Len() within grace = %d, want 1", r.Len())
	}

	// Absent past the grace period: retires.
	current = current.Add(10 * time.Second)
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if r.Len() != 0 {
		t.Errorf("Len() past grace = %d, want 0", r.Len())
	}
	if len(hooks.retired) != 1 || hooks.retired[0] != "pb-1" {
		t.Errorf("retired = %v, want [pb-1]", hooks.retired)
	}
}

// A session absent from one refresh but present in the next keeps its entry
// and state.
func TestReappearanceWithinGraceKeepsSession(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	poller := &fakePoller{}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, poller, hooks.hooks())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	before, _ := r.Get("pb-1")

	lister.container = containerWith()
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	lister.container = containerWith(testVideo("pb-1", 130000))
	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	after, ok := r.Get("pb-1")
	if !ok {
		t.Fatal("session lost across a within-grace absence")
	}
	if before != after {
		t.Error("session entry was recreated, want the same instance kept")
	}
	if !after.LastSeen.IsZero() {
		t.Error("LastSeen not cleared after reappearance")
	}
	if len(hooks.created) != 1 || len(hooks.retired) != 0 {
		t.Errorf("hooks created=%v retired=%v, want one create and no retire", hooks.created, hooks.retired)
	}
}

// Two consecutive refreshes with identical server output produce identical
// registry contents and no monitor churn.
func TestIdempotentRefresh(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000), testVideo("pb-2", 5000))}
	poller := &fakePoller{snap: &plex.TimelineSnapshot{TimeMS: 120450, SubtitleStreamID: "0"}}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, poller, hooks.hooks())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	first := r.Snapshot()

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	second := r.Snapshot()

	if len(first) != len(second) {
		t.Fatalf("snapshot sizes differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].PlaybackID != second[i].PlaybackID ||
			first[i].ViewOffsetMS != second[i].ViewOffsetMS ||
			first[i].KnownSubsOn != second[i].KnownSubsOn {
			t.Errorf("snapshot[%d] changed across identical refreshes:\n  first:  %+v\n  second: %+v",
				i, first[i], second[i])
		}
	}
	if len(hooks.created) != 2 {
		t.Errorf("created = %v, want exactly the initial two", hooks.created)
	}
	if len(hooks.retired) != 0 {
		t.Errorf("retired = %v, want none", hooks.retired)
	}
}

func TestApplyPlayingUpdatesPosition(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	r := newTestRegistry(lister, &fakePoller{}, Hooks{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	r.ApplyPlaying(&models.PlaySessionState{
		ClientIdentifier: "pb-1",
		ViewOffset:       123456,
		State:            models.PlayerStatePlaying,
	})

	s, _ := r.Get("pb-1")
	if s.ViewOffsetMS != 123456 {
		t.Errorf("ViewOffsetMS = %d, want 123456", s.ViewOffsetMS)
	}
	if s.AccurateTimeMS == nil || *s.AccurateTimeMS != 123456 {
		t.Errorf("AccurateTimeMS = %v, want 123456", s.AccurateTimeMS)
	}
}

func TestApplyPlayingNeverCreates(t *testing.T) {
	t.Parallel()

	r := newTestRegistry(&fakeLister{container: containerWith()}, &fakePoller{}, Hooks{})

	r.ApplyPlaying(&models.PlaySessionState{
		ClientIdentifier: "pb-unknown",
		ViewOffset:       1000,
		State:            models.PlayerStatePlaying,
	})

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0: push events must not create sessions", r.Len())
	}
}

func TestApplyPlayingStoppedRetiresImmediately(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	hooks := &trackingHooks{}
	r := newTestRegistry(lister, &fakePoller{}, hooks.hooks())

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	r.ApplyPlaying(&models.PlaySessionState{
		ClientIdentifier: "pb-1",
		State:            models.PlayerStateStopped,
	})

	if r.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after stop notification", r.Len())
	}
	if len(hooks.retired) != 1 || hooks.retired[0] != "pb-1" {
		t.Errorf("retired = %v, want [pb-1]", hooks.retired)
	}
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	t.Parallel()

	lister := &fakeLister{container: containerWith(testVideo("pb-1", 120000))}
	r := newTestRegistry(lister, &fakePoller{}, Hooks{})

	if err := r.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	snapshot := r.Snapshot()
	snapshot[0].ViewOffsetMS = 999
	snapshot[0].ActiveSubtitleIDs = append(snapshot[0].ActiveSubtitleIDs, "junk")

	s, _ := r.Get("pb-1")
	if s.ViewOffsetMS == 999 {
		t.Error("mutating a snapshot changed the live session")
	}
	for _, id := range s.ActiveSubtitleIDs {
		if id == "junk" {
			t.Error("mutating a snapshot slice changed the live session")
		}
	}
}

func TestTriBoolString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		value TriBool
		want  string
	}{
		{TriUnknown, "unknown"},
		{TriFalse, "no"},
		{TriTrue, "yes"},
	}
	for _, tt := range tests {
		if got := tt.value.String(); got != tt.want {
			t.Errorf("TriBool(%d).String() = %q, want %q", tt.value, got, tt.want)
		}
	}
}
