package command

import (
	"strings"

	"github.com/beevik/etree"
)

// clixmlPrefix marks PowerShell's serialized diagnostic stream format.
const clixmlPrefix = "#< CLIXML"

// CleanOutput strips the CLIXML wrapper from a stdout stream, returning the
// embedded string payload if any. Plain output passes through trimmed.
func CleanOutput(out string) string {
	out = strings.TrimSpace(out)
	if !strings.HasPrefix(out, clixmlPrefix) {
		return out
	}

	strs := parseCLIXMLStrings(out, func(el *etree.Element) bool {
		return el.SelectAttrValue("S", "") == ""
	})
	return strings.Join(strs, "\n")
}

// CleanDiagnostics strips the CLIXML wrapper from a stderr stream and
// extracts the error-stream messages, dropping position noise ("At line:",
// "+ ..."). Plain stderr passes through trimmed.
func CleanDiagnostics(errOut string) string {
	errOut = strings.TrimSpace(errOut)
	if !strings.HasPrefix(errOut, clixmlPrefix) {
		return errOut
	}

	strs := parseCLIXMLStrings(errOut, func(el *etree.Element) bool {
		return el.SelectAttrValue("S", "") == "Error"
	})

	var cleaned []string
	for _, s := range strs {
		s = strings.TrimSpace(s)
		if s == "" || strings.HasPrefix(s, "At line:") || strings.HasPrefix(s, "+") {
			continue
		}
		cleaned = append(cleaned, s)
	}
	return strings.Join(cleaned, "\n")
}

// parseCLIXMLStrings pulls the text of every <S> element matching the
// filter out of a CLIXML document, decoding the _x000D__x000A_ newline
// escapes PowerShell uses.
func parseCLIXMLStrings(payload string, match func(*etree.Element) bool) []string {
	xml := strings.TrimSpace(strings.TrimPrefix(payload, clixmlPrefix))

	doc := etree.NewDocument()
	if err := doc.ReadFromString(xml); err != nil {
		return nil
	}

	root := doc.Root()
	if root == nil {
		return nil
	}

	var out []string
	for _, el := range root.FindElements("//S") {
		if !match(el) {
			continue
		}
		text := strings.ReplaceAll(el.Text(), "_x000D__x000A_", "\n")
		text = strings.TrimRight(text, "\n")
		if text != "" {
			out = append(out, text)
		}
	}
	return out
}
