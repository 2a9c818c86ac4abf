package core

import (
	"errors"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/pretty"
)

// ErrInvalidManifest is returned when manifest content is not valid JSON.
var ErrInvalidManifest = errors.New("manifest is not valid JSON")

// coreNodePack is the registry id of nodes bundled with the application itself.
const coreNodePack = "comfy-core"

// WorkflowInfo is what a workflow manifest reveals about its requirements.
type WorkflowInfo struct {
	NodeTypes  []string
	Extensions []string
}

// FormatManifest validates raw manifest content and returns it pretty-printed.
func FormatManifest(data []byte) ([]byte, error) {
	if len(strings.TrimSpace(string(data))) == 0 || !gjson.ValidBytes(data) {
		return nil, ErrInvalidManifest
	}
	return pretty.PrettyOptions(data, &pretty.Options{Width: 80, Indent: "  "}), nil
}

// InspectWorkflow lists node types and the extensions providing them.
// Both the UI export format (a "nodes" array) and the API format (an object
// of nodes keyed by id with "class_type") are understood. Extensions are
// returned as repository URLs when the node records its source repository,
// otherwise as registry ids.
func InspectWorkflow(data []byte) WorkflowInfo {
	types := map[string]bool{}
	exts := map[string]bool{}

	root := gjson.ParseBytes(data)
	if nodes := root.Get("nodes"); nodes.IsArray() {
		nodes.ForEach(func(_, node gjson.Result) bool {
			if t := node.Get("type").String(); t != "" {
				types[t] = true
			}
			props := node.Get("properties")
			if aux := props.Get("aux_id").String(); aux != "" {
				exts[auxIDToURL(aux)] = true
			} else if cnr := props.Get("cnr_id").String(); cnr != "" && cnr != coreNodePack {
				exts[cnr] = true
			}
			return true
		})
	} else if root.IsObject() {
		root.ForEach(func(_, node gjson.Result) bool {
			if t := node.Get("class_type").String(); t != "" {
				types[t] = true
			}
			return true
		})
	}

	return WorkflowInfo{NodeTypes: sortedKeys(types), Extensions: sortedKeys(exts)}
}

// auxIDToURL turns an "owner/repo" source id into a repository URL.
func auxIDToURL(aux string) string {
	if strings.Contains(aux, "://") {
		return aux
	}
	return "https://github.com/" + strings.Trim(aux, "/")
}

// MissingExtensions returns required extensions not covered by installed
// extension locators. Matching is by repository name, case-insensitive.
func MissingExtensions(required, installed []string) []string {
	have := make(map[string]bool, len(installed))
	for _, l := range installed {
		have[strings.ToLower(RepoName(l))] = true
	}
	var missing []string
	for _, r := range required {
		if !have[strings.ToLower(RepoName(r))] {
			missing = append(missing, r)
		}
	}
	return missing
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
