package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/agentoven/kpi-report/pkg/models"
)

const (
	seedHeader     = "Here are the KPI blobs:\n"
	targetsHeader  = "\n\nTargets:\n"
	blobFenceOpen  = "```json\n"
	blobFenceClose = "\n```"
	blobSeparator  = "\n\n"
	blobIndent     = "    "
)

// MarshalBlob renders one blob as indented JSON. Field order follows the
// struct, record keys are sorted, and HTML characters are left unescaped,
// so the output only depends on the blob's content.
func MarshalBlob(blob models.KPIBlob) (string, error) {
	if blob.Data == nil {
		blob.Data = []map[string]interface{}{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", blobIndent)
	if err := enc.Encode(blob); err != nil {
		return "", fmt.Errorf("marshal blob %q: %w", blob.Name, err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}

// BuildSeed builds the message that opens every conversation: each blob as
// a fenced JSON block, followed by the free-text targets.
func BuildSeed(blobs []models.KPIBlob, targets string) (string, error) {
	fenced := make([]string, 0, len(blobs))
	for _, blob := range blobs {
		js, err := MarshalBlob(blob)
		if err != nil {
			return "", err
		}
		fenced = append(fenced, blobFenceOpen+js+blobFenceClose)
	}

	var sb strings.Builder
	sb.WriteString(seedHeader)
	sb.WriteString(strings.Join(fenced, blobSeparator))
	sb.WriteString(targetsHeader)
	sb.WriteString(targets)
	return sb.String(), nil
}
