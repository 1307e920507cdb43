package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
)

var ErrMalformedTree = errors.New("malformed report decision tree")

// Node is a single step of the reporting questionnaire. A node with options
// is a branch; a node without options is a leaf and ends tree traversal.
// Nodes are built once at load time and never mutated afterwards.
type Node struct {
	Warning   string
	Prompt    string
	FinalNote string
	Options   []Option
}

// Option pairs a selectable label with the node it descends to. Options keep
// the order they appear in the tree document.
type Option struct {
	Label string
	Node  *Node
}

// IsLeaf reports whether the node terminates tree traversal.
func (n *Node) IsLeaf() bool {
	return len(n.Options) == 0
}

// LoadTree parses the questionnaire document at the given path. The document
// is a nested JSON object where each node may carry "warning", "prompt" and
// "final_note" strings plus an object-valued "options" mapping of labels to
// child nodes. Shape errors fail immediately with ErrMalformedTree.
func LoadTree(path string) (*Node, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report tree: %w", err)
	}

	return ParseTree(data)
}

// ParseTree decodes a questionnaire document from raw bytes.
//
// A hand-rolled token walk is used instead of plain unmarshalling because
// option order must follow the document order of the "options" object keys,
// which map-based decoding cannot preserve.
func ParseTree(data []byte) (*Node, error) {
	dec := json.NewDecoder(strings.NewReader(string(data)))

	root, err := decodeNode(dec)
	if err != nil {
		return nil, err
	}

	// Anything after the root object means the document is not a single tree.
	if dec.More() {
		return nil, fmt.Errorf("%w: trailing content after root node", ErrMalformedTree)
	}

	return root, nil
}

func decodeNode(dec *json.Decoder) (*Node, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, err
	}

	node := &Node{}

	for dec.More() {
		key, err := decodeKey(dec)
		if err != nil {
			return nil, err
		}

		switch key {
		case "warning":
			node.Warning, err = decodeString(dec, key)
		case "prompt":
			node.Prompt, err = decodeString(dec, key)
		case "final_note":
			node.FinalNote, err = decodeString(dec, key)
		case "options":
			node.Options, err = decodeOptions(dec)
		default:
			err = skipValue(dec)
		}

		if err != nil {
			return nil, err
		}
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return node, nil
}

func decodeOptions(dec *json.Decoder) ([]Option, error) {
	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("%w: options must be an object", ErrMalformedTree)
	}

	var options []Option

	for dec.More() {
		label, err := decodeKey(dec)
		if err != nil {
			return nil, err
		}

		child, err := decodeNode(dec)
		if err != nil {
			return nil, err
		}

		options = append(options, Option{Label: label, Node: child})
	}

	if err := expectDelim(dec, '}'); err != nil {
		return nil, err
	}

	return options, nil
}

func decodeKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}

	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: expected object key, got %v", ErrMalformedTree, tok)
	}

	return key, nil
}

func decodeString(dec *json.Decoder, key string) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}

	value, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("%w: %q must be a string", ErrMalformedTree, key)
	}

	return value, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedTree, err)
	}

	if delim, ok := tok.(json.Delim); !ok || delim != want {
		return fmt.Errorf("%w: expected %q, got %v", ErrMalformedTree, want, tok)
	}

	return nil
}

// skipValue consumes one JSON value of any shape, tracking delimiter depth.
func skipValue(dec *json.Decoder) error {
	depth := 0

	for {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("%w: %w", ErrMalformedTree, err)
		}

		if delim, ok := tok.(json.Delim); ok {
			switch delim {
			case '{', '[':
				depth++
			case '}', ']':
				depth--
			}
		}

		if depth == 0 {
			return nil
		}
	}
}

// RenderNode produces the questionnaire prompt for a branch node: optional
// warning, optional prompt, the numbered options, and a trailing skip slot
// numbered one past the last option. Rendering is pure, so re-rendering the
// same node yields byte-identical text.
func RenderNode(node *Node) string {
	var b strings.Builder

	if node.Warning != "" {
		b.WriteString(node.Warning)
		b.WriteString("\n\n")
	}

	if node.Prompt != "" {
		b.WriteString(node.Prompt)
		b.WriteString("\n")
	}

	for i, option := range node.Options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, option.Label)
	}

	fmt.Fprintf(&b, "%d. Skip the remaining questions", len(node.Options)+1)

	return b.String()
}
