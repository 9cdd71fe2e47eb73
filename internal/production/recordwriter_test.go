package production

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/comalice/vertexfsm"
)

func sampleRecords() []vertexfsm.TransitionRecord {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return []vertexfsm.TransitionRecord{
		{MachineID: "m1", From: "s1", To: "s2", EventType: "e1", Depth: 1, Version: 1, Timestamp: now},
		{MachineID: "m1", From: "s2", To: "s1", EventType: "reset", Depth: 2, Version: 3, Timestamp: now.Add(time.Second)},
	}
}

func TestRecordWriter_RoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			var buf bytes.Buffer
			w, err := NewRecordWriter(&buf, format)
			if err != nil {
				t.Fatal(err)
			}
			for _, rec := range sampleRecords() {
				if err := w.Publish(context.Background(), rec); err != nil {
					t.Fatalf("Publish failed: %v", err)
				}
			}

			got, err := ReadRecords(&buf, format)
			if err != nil {
				t.Fatalf("ReadRecords failed: %v", err)
			}
			want := sampleRecords()
			if len(got) != len(want) {
				t.Fatalf("got %d records, want %d", len(got), len(want))
			}
			for i := range want {
				if got[i].From != want[i].From || got[i].To != want[i].To || got[i].Version != want[i].Version {
					t.Errorf("record %d: got %+v, want %+v", i, got[i], want[i])
				}
				if !got[i].Timestamp.Equal(want[i].Timestamp) {
					t.Errorf("record %d timestamp: got %v, want %v", i, got[i].Timestamp, want[i].Timestamp)
				}
			}
		})
	}
}

func TestRecordWriter_UnknownFormat(t *testing.T) {
	if _, err := NewRecordWriter(&bytes.Buffer{}, "xml"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFileRecordWriter_MachineIntegration(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "records")
	w, err := NewFileRecordWriter(dir, "light", FormatYAML)
	if err != nil {
		t.Fatalf("NewFileRecordWriter failed: %v", err)
	}

	m, err := vertexfsm.New(twoStateDefinition(t), vertexfsm.WithPublisher(w), vertexfsm.WithMachineID("light"))
	if err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	for _, ev := range []testEvent{"e1", "poke", "reset"} {
		if err := m.ProcessEvent(ctx, ev); err != nil {
			t.Fatalf("ProcessEvent(%s) failed: %v", ev, err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}

	f, err := os.Open(filepath.Join(dir, "light.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	records, err := ReadRecords(f, FormatYAML)
	if err != nil {
		t.Fatal(err)
	}

	want := [][2]string{{"s1", "s2"}, {"s2", "s2"}, {"s2", "s1"}}
	if len(records) != len(want) {
		t.Fatalf("got %d records, want %d", len(records), len(want))
	}
	for i, w := range want {
		if records[i].From != w[0] || records[i].To != w[1] {
			t.Errorf("record %d: got %s -> %s, want %s -> %s", i, records[i].From, records[i].To, w[0], w[1])
		}
		if records[i].MachineID != "light" {
			t.Errorf("record %d machine id %q", i, records[i].MachineID)
		}
	}
}
