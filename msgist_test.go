package msgist

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/relaybridge/msgist/config"
	"github.com/relaybridge/msgist/resourcecache"
	"github.com/relaybridge/msgist/wire"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Config{
		Name:          "test-" + t.Name(),
		CipherKey:     "integration-secret",
		RemoteAddress: map[string]string{"s1": "msgist://relay.example"},
		LogLevel:      "error",
		LogFormat:     "text",
	}
	t.Cleanup(func() {
		os.Remove(filepath.Join(os.TempDir(), resourcecache.DirName+"-"+cfg.Name+".db"))
	})
	return cfg
}

func TestApplyWiresEverySubsystem(t *testing.T) {
	lib, err := Apply(testConfig(t))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer lib.Close()

	if lib.Cipher == nil {
		t.Fatal("Cipher not wired")
	}
	if lib.ImageStore == nil {
		t.Fatal("ImageStore not wired")
	}
	if lib.Downloader == nil {
		t.Fatal("Downloader not wired")
	}
	if lib.Resources == nil {
		t.Fatal("Resources not wired")
	}
	if lib.Transport == nil {
		t.Fatal("Transport not wired")
	}
	if lib.Metrics == nil {
		t.Fatal("Metrics not wired")
	}
}

func TestApplyRejectsInvalidConfig(t *testing.T) {
	_, err := Apply(config.Config{})
	if err == nil {
		t.Fatal("expected Apply to reject an empty config")
	}
}

func TestRoomIDDeterministic(t *testing.T) {
	lib, err := Apply(testConfig(t))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer lib.Close()

	a := lib.RoomID("#general")
	b := lib.RoomID("#general")
	if a != b {
		t.Fatalf("RoomID not deterministic: %v != %v", a, b)
	}

	other := lib.RoomID("#random")
	if a == other {
		t.Fatal("different addresses produced the same room id")
	}
}

func TestSetPacketHandlerIsWriteOnce(t *testing.T) {
	lib, err := Apply(testConfig(t))
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	defer lib.Close()

	handler := func(serverID string, pkt *wire.Packet) (Outcome, *wire.Packet) {
		return Continue, pkt
	}

	if err := lib.SetPacketHandler(handler); err != nil {
		t.Fatalf("first SetPacketHandler: %v", err)
	}
	if err := lib.SetPacketHandler(handler); err == nil {
		t.Fatal("expected a second SetPacketHandler call to fail")
	}
}
