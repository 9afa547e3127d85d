package security

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"haca/internal/document"
	"haca/internal/models"
	"haca/internal/utils"

	"gopkg.in/yaml.v3"
)

const (
	minSecretLength   = 16
	minPasswordLength = 8
	checkpointEvery   = 10
)

var sensitiveKeys = map[string]bool{
	"api_key":        true,
	"apikey":         true,
	"api_token":      true,
	"access_token":   true,
	"auth_token":     true,
	"token":          true,
	"password":       true,
	"passwd":         true,
	"secret":         true,
	"client_secret":  true,
	"private_key":    true,
	"bearer_token":   true,
	"webhook_secret": true,
}

var exposurePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)api_key\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{16,}`),
	regexp.MustCompile(`(?i)password\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{8,}`),
	regexp.MustCompile(`(?i)token\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{20,}`),
	regexp.MustCompile(`(?i)secret\s*[:=]\s*['"]?[a-zA-Z0-9_\-]{16,}`),
}

// Analyze walks every document for hardcoded credentials and for
// notifications that leak them
func Analyze(ctx context.Context, set *document.Set) ([]models.Issue, error) {
	issues := []models.Issue{}
	for i, d := range set.All() {
		if i%checkpointEvery == 0 {
			if err := ctx.Err(); err != nil {
				return issues, err
			}
		}
		issues = append(issues, AnalyzeDocument(d)...)
	}
	utils.Logger("SECURITY").Infof("Security analysis complete: %d issues", len(issues))
	return issues, nil
}

// AnalyzeDocument applies both security rules to one document
func AnalyzeDocument(d *document.Document) []models.Issue {
	node := d.Node
	if node == nil {
		n, err := document.ToNode(d.Raw)
		if err != nil {
			utils.Logger("SECURITY").Warnf("Cannot inspect %s: %v", d.EntityID, err)
			return nil
		}
		node = n
	}

	var out []models.Issue
	walk(node, "", func(path, key string, value *yaml.Node) {
		if !HardcodedSecret(key, value) {
			return
		}
		out = append(out, models.Issue{
			EntityID:       d.EntityID,
			Alias:          d.Name(),
			Type:           models.IssueHardcodedSecret,
			Severity:       models.SeverityHigh,
			Message:        fmt.Sprintf("%s contains a hardcoded credential in %s", d.Name(), key),
			Location:       path,
			Recommendation: fmt.Sprintf("Move the value to secrets.yaml and reference it with !secret %s", key),
		})
	})

	if d.Kind == document.KindScene {
		return out
	}
	for _, it := range d.Items(document.Actions) {
		svc, ok := document.Classify(document.Actions, it.Item).(document.Service)
		if !ok || !isNotify(svc.Service) {
			continue
		}
		if !Exposes(document.String(svc.Data, "message")) {
			continue
		}
		out = append(out, models.Issue{
			EntityID:       d.EntityID,
			Alias:          d.Name(),
			Type:           models.IssueSensitiveDataExposure,
			Severity:       models.SeverityHigh,
			Message:        fmt.Sprintf("Notification sent by %s may expose a credential", d.Name()),
			Location:       d.Location(document.Actions, it.Index) + ".data.message",
			Recommendation: "Remove credentials from notification messages",
		})
	}
	return out
}

func isNotify(service string) bool {
	return strings.Contains(service, "notify") || strings.Contains(service, "persistent_notification")
}

// Exposes reports whether a message contains a credential shaped value
func Exposes(message string) bool {
	for _, re := range exposurePatterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// HardcodedSecret reports whether value, stored under key, looks like a
// credential written directly into the file. Tagged values such as
// !secret and !env_var never match.
func HardcodedSecret(key string, value *yaml.Node) bool {
	lower := strings.ToLower(key)
	if !sensitiveKeys[lower] || value == nil || value.Kind != yaml.ScalarNode {
		return false
	}
	if value.ShortTag() != "!!str" {
		return false
	}
	v := value.Value
	minLen := minSecretLength
	if lower == "password" || lower == "passwd" {
		minLen = minPasswordLength
	}
	switch {
	case len(v) < minLen:
		return false
	case strings.ContainsAny(v, " \t"):
		return false
	case document.IsEntityID(v):
		return false
	case strings.Contains(v, "://"):
		return false
	case document.IsTemplate(v):
		return false
	}
	return true
}

// walk visits every mapping pair below n with its dotted path
func walk(n *yaml.Node, path string, visit func(path, key string, value *yaml.Node)) {
	switch n.Kind {
	case yaml.DocumentNode:
		for _, c := range n.Content {
			walk(c, path, visit)
		}
	case yaml.MappingNode:
		for i := 0; i+1 < len(n.Content); i += 2 {
			key := n.Content[i].Value
			child := key
			if path != "" {
				child = path + "." + key
			}
			visit(child, key, n.Content[i+1])
			walk(n.Content[i+1], child, visit)
		}
	case yaml.SequenceNode:
		for i, c := range n.Content {
			walk(c, fmt.Sprintf("%s[%d]", path, i), visit)
		}
	}
}
