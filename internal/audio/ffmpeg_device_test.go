package audio

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/pilebones/go-udev/netlink"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts not supported on windows")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatalf("write script: %v", err)
	}
	return path
}

func TestFFmpegArgs(t *testing.T) {
	device := NewFFmpegDevice(FFmpegConfig{InputFormat: "pulse", InputDevice: "mic", SampleRate: 48000, Channels: 1}, nil)
	got := strings.Join(device.Args(), " ")
	want := "-hide_banner -nostats -loglevel error -f pulse -i mic -ac 1 -ar 48000 -c:a libopus -f webm pipe:1"
	if got != want {
		t.Fatalf("unexpected args:\n got %q\nwant %q", got, want)
	}
}

func TestFFmpegDeviceStreamsStdout(t *testing.T) {
	script := writeScript(t, "printf 'webm-bytes'\nexec sleep 30")
	device := NewFFmpegDevice(FFmpegConfig{Binary: script, StartupGrace: 100 * time.Millisecond}, nil)
	rec := NewRecorder(device, RecorderConfig{LockPath: filepath.Join(t.TempDir(), "lock")}, nil)

	session, err := rec.Start(context.Background())
	if err != nil {
		t.Fatalf("Start returned error: %v", err)
	}
	source, err := session.Stop()
	if err != nil {
		t.Fatalf("Stop returned error: %v", err)
	}
	if string(source.Bytes()) != "webm-bytes" {
		t.Fatalf("unexpected payload %q", source.Bytes())
	}
}

func TestFFmpegDeviceReportsStartupFailure(t *testing.T) {
	script := writeScript(t, "echo 'default: No such device' >&2\nexit 1")
	device := NewFFmpegDevice(FFmpegConfig{Binary: script, StartupGrace: 5 * time.Second}, nil)

	_, err := device.Start(context.Background(), make(chan []byte, 4))
	if err == nil {
		t.Fatal("expected startup failure")
	}
	if !strings.Contains(err.Error(), "No such device") {
		t.Fatalf("expected stderr in error, got %v", err)
	}
}

func TestFFmpegDeviceMissingBinary(t *testing.T) {
	device := NewFFmpegDevice(FFmpegConfig{Binary: filepath.Join(t.TempDir(), "absent")}, nil)
	if _, err := device.Start(context.Background(), make(chan []byte, 1)); err == nil {
		t.Fatal("expected error for missing binary")
	}
}

func TestRemovalMatcher(t *testing.T) {
	matcher := removalMatcher()

	remove := netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "sound", "DEVNAME": "/dev/snd/pcmC1D0c"},
	}
	if !matcher.Evaluate(remove) {
		t.Error("expected matcher to accept sound removal")
	}

	add := netlink.UEvent{
		Action: netlink.ADD,
		Env:    map[string]string{"SUBSYSTEM": "sound", "DEVNAME": "/dev/snd/pcmC1D0c"},
	}
	if matcher.Evaluate(add) {
		t.Error("expected matcher to reject ADD action")
	}

	block := netlink.UEvent{
		Action: netlink.REMOVE,
		Env:    map[string]string{"SUBSYSTEM": "block"},
	}
	if matcher.Evaluate(block) {
		t.Error("expected matcher to reject non-sound subsystem")
	}
}

func TestCaptureDeviceName(t *testing.T) {
	cases := []struct {
		env  map[string]string
		name string
		ok   bool
	}{
		{map[string]string{"DEVNAME": "/dev/snd/pcmC1D0c"}, "/dev/snd/pcmC1D0c", true},
		{map[string]string{"DEVNAME": "/dev/snd/pcmC1D0p"}, "", false},
		{map[string]string{"DEVPATH": "/devices/pci0000:00/usb1/sound/card2"}, "card2", true},
		{map[string]string{}, "", false},
	}
	for _, tc := range cases {
		name, ok := captureDeviceName(netlink.UEvent{Env: tc.env})
		if name != tc.name || ok != tc.ok {
			t.Fatalf("captureDeviceName(%v) = %q, %v; want %q, %v", tc.env, name, ok, tc.name, tc.ok)
		}
	}
}
