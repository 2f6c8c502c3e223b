package immich_test

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"photoimport/internal/services/immich"
	"photoimport/internal/testsupport"
)

func TestContainerArgs(t *testing.T) {
	c := &immich.ContainerClient{Runtime: "docker", Image: "ghcr.io/immich-app/immich-cli:latest", Network: "immich_default"}
	got := strings.Join(c.Args("/srv/import/vacation"), " ")
	want := "run --rm --mount type=bind,source=/srv/import/vacation,target=/import,readonly -e IMMICH_INSTANCE_URL -e IMMICH_API_KEY --network immich_default ghcr.io/immich-app/immich-cli:latest upload --recursive /import"
	if got != want {
		t.Fatalf("args =\n%s\nwant\n%s", got, want)
	}
	for _, arg := range c.Args("/x") {
		if strings.Contains(arg, "secret") {
			t.Fatal("credential leaked into arguments")
		}
	}
}

func TestContainerMountKeepsAwkwardFolderNames(t *testing.T) {
	c := &immich.ContainerClient{Runtime: "docker", Image: "cli"}
	cases := map[string]string{
		"/srv/import/12:30 party":   "type=bind,source=/srv/import/12:30 party,target=/import,readonly",
		"/srv/import/rome, italy":   `type=bind,"source=/srv/import/rome, italy",target=/import,readonly`,
		`/srv/import/the "big" day`: `type=bind,"source=/srv/import/the ""big"" day",target=/import,readonly`,
	}
	for folder, want := range cases {
		args := c.Args(folder)
		if args[2] != "--mount" || args[3] != want {
			t.Errorf("Args(%q) mount = %q %q, want --mount %q", folder, args[2], args[3], want)
		}
	}
}

func TestInstanceURL(t *testing.T) {
	cases := map[string]string{
		"http://immich:2283":      "http://immich:2283/api",
		"http://immich:2283/":     "http://immich:2283/api",
		"https://photos.test/api": "https://photos.test/api",
	}
	for in, want := range cases {
		if got := immich.InstanceURL(in); got != want {
			t.Errorf("InstanceURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func stubRuntime(t *testing.T, body string) string {
	t.Helper()
	binDir := t.TempDir()
	path := filepath.Join(binDir, "fake-runtime")
	testsupport.WriteScript(t, path, body)
	return path
}

func TestContainerUploadSuccessParsesCounts(t *testing.T) {
	runtime := stubRuntime(t, `echo "url=$IMMICH_INSTANCE_URL key=$IMMICH_API_KEY"
echo "Successfully uploaded 2 new assets"
echo "1 skipped" >&2
`)
	c := &immich.ContainerClient{Runtime: runtime, Image: "cli", URL: "http://immich:2283", APIKey: "secret"}

	res, err := c.Upload(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}
	if res.ExitCode != 0 || res.Uploaded != 2 || res.Skipped != 1 || !res.CountsKnown {
		t.Fatalf("unexpected result: %+v", res)
	}
	if !strings.Contains(res.RawOutput, "url=http://immich:2283/api key=secret") {
		t.Fatalf("environment not passed: %q", res.RawOutput)
	}
}

func TestContainerUploadNonZeroExit(t *testing.T) {
	runtime := stubRuntime(t, "echo 'Error: 401 Unauthorized'\nexit 3\n")
	c := &immich.ContainerClient{Runtime: runtime, Image: "cli"}

	res, err := c.Upload(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("non-zero exit is a result, not an error: %v", err)
	}
	if res.ExitCode != 3 || !strings.Contains(res.RawOutput, "401") {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestContainerUploadMissingRuntime(t *testing.T) {
	c := &immich.ContainerClient{Runtime: filepath.Join(t.TempDir(), "missing"), Image: "cli"}
	res, err := c.Upload(context.Background(), t.TempDir())
	if err == nil || res.ExitCode != -1 {
		t.Fatalf("expected launch error, got %+v err=%v", res, err)
	}
}

func TestContainerMountIsReadOnly(t *testing.T) {
	runtime := stubRuntime(t, `for a in "$@"; do echo "$a"; done`)
	folder := filepath.Join(t.TempDir(), "2024:01 trip")
	if err := os.Mkdir(folder, 0o755); err != nil {
		t.Fatal(err)
	}
	c := &immich.ContainerClient{Runtime: runtime, Image: "cli"}
	res, err := c.Upload(context.Background(), folder)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(res.RawOutput, "type=bind,source="+folder+",target=/import,readonly\n") {
		t.Fatalf("expected read-only mount in %q", res.RawOutput)
	}
	if _, err := os.Stat(folder); err != nil {
		t.Fatal(err)
	}
}
