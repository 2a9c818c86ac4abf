package core

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		locator string
		want    LinkKind
	}{
		{"https://github.com/ltdrdata/ComfyUI-Manager", LinkRepository},
		{"https://github.com/ltdrdata/ComfyUI-Manager.git", LinkRepository},
		{"https://github.com/ltdrdata/ComfyUI-Manager/", LinkRepository},
		{"git@github.com:ltdrdata/ComfyUI-Manager.git", LinkRepository},
		{"https://gitlab.com/group/project", LinkRepository},
		{"https://git.example.com/team/tool.git", LinkRepository},
		{"https://example.com/owner/repo", LinkRepository},
		{"https://github.com/owner/repo/releases/download/v1/model.pth", LinkFile},
		{"https://github.com/owner/repo/raw/main/weights.bin", LinkFile},
		{"https://github.com/owner/repo/blob/main/flow.json", LinkManifest},
		{"https://huggingface.co/stabilityai/sdxl/resolve/main/sd_xl_base_1.0.safetensors", LinkFile},
		{"https://civitai.com/api/download/models/12345", LinkFile},
		{"https://cdn.example.com/flows/portrait.json", LinkManifest},
		{"https://cdn.example.com/flows/portrait.JSON?token=abc", LinkManifest},
		{"https://cdn.example.com/model.safetensors#sha256=abcd", LinkFile},
	}
	for _, tt := range tests {
		t.Run(tt.locator, func(t *testing.T) {
			if got := Classify(tt.locator); got != tt.want {
				t.Errorf("Classify(%q) = %s, want %s", tt.locator, got, tt.want)
			}
		})
	}
}

func TestClassifyCustomDomains(t *testing.T) {
	c := NewClassifier([]string{"git.internal"})
	if got := c.Classify("https://git.internal/team/nodes/tree/main"); got != LinkRepository {
		t.Errorf("custom domain = %s, want repository", got)
	}
	// github.com is not in the custom list; a deep path is a plain file.
	if got := c.Classify("https://github.com/owner/repo/tree/main"); got != LinkFile {
		t.Errorf("github.com with custom list = %s, want file", got)
	}
}

func TestBasename(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"https://cdn.example.com/models/base.safetensors", "base.safetensors"},
		{"https://cdn.example.com/models/base.safetensors?download=true", "base.safetensors"},
		{"https://cdn.example.com/flows/my%20flow.json", "my flow.json"},
		{"https://github.com/owner/repo/", "repo"},
		{"./local/model.ckpt", "model.ckpt"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := Basename(tt.locator); got != tt.want {
			t.Errorf("Basename(%q) = %q, want %q", tt.locator, got, tt.want)
		}
	}
}

func TestRepoName(t *testing.T) {
	tests := []struct {
		locator string
		want    string
	}{
		{"https://github.com/owner/ComfyUI-Manager.git", "ComfyUI-Manager"},
		{"https://github.com/owner/ComfyUI-Manager", "ComfyUI-Manager"},
		{"git@github.com:owner/nodes.git", "nodes"},
	}
	for _, tt := range tests {
		if got := RepoName(tt.locator); got != tt.want {
			t.Errorf("RepoName(%q) = %q, want %q", tt.locator, got, tt.want)
		}
	}
}

func TestLocatorChecksum(t *testing.T) {
	if got := locatorChecksum("https://x.test/a.bin#sha256=ABCDEF"); got != "abcdef" {
		t.Errorf("locatorChecksum = %q, want %q", got, "abcdef")
	}
	if got := locatorChecksum("https://x.test/a.bin#foo=1&sha256=12ab"); got != "12ab" {
		t.Errorf("locatorChecksum = %q, want %q", got, "12ab")
	}
	if got := locatorChecksum("https://x.test/a.bin"); got != "" {
		t.Errorf("locatorChecksum without fragment = %q, want empty", got)
	}
}

func TestIsLocalPath(t *testing.T) {
	for _, in := range []string{"./ext", "../ext.zip", "/abs/path", "~/ext", "."} {
		if !isLocalPath(in) {
			t.Errorf("isLocalPath(%q) = false, want true", in)
		}
	}
	for _, in := range []string{"https://github.com/a/b", "owner/repo", "git@github.com:a/b.git"} {
		if isLocalPath(in) {
			t.Errorf("isLocalPath(%q) = true, want false", in)
		}
	}
}
