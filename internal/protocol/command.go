// Package protocol implements the line-oriented wire grammar shared by
// the session manager and the client replica: parsing command lines into
// markdown.Command values, and formatting the outcome lines and
// broadcast blocks that flow back over the transport.
package protocol

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/inkdoc/inkdoc/internal/markdown"
)

// ErrUnknownCommand is returned by ParseCommand when a line matches none
// of the twelve grammars.
var ErrUnknownCommand = fmt.Errorf("protocol: unknown command")

// ParseCommand parses one command line (without its trailing newline)
// into a markdown.Command. Free-text arguments (INSERT's text, LINK's
// URL) consume the remainder of the line, matching the original
// sscanf("%[^\n]", ...) greediness.
func ParseCommand(line string) (markdown.Command, error) {
	fields := strings.SplitN(line, " ", 2)
	verb := fields[0]

	switch verb {
	case "INSERT":
		pos, text, ok := splitPosAndRest(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdInsert, Pos: pos, Text: text}, nil

	case "DEL":
		a, b, ok := twoInts(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdDelete, Pos: a, Len: b}, nil

	case "NEWLINE":
		pos, ok := oneInt(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdNewline, Pos: pos}, nil

	case "HEADING":
		a, b, ok := twoInts(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdHeading, Level: a, Pos: b}, nil

	case "BOLD":
		a, b, ok := twoInts(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdBold, Start: a, End: b}, nil

	case "ITALIC":
		a, b, ok := twoInts(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdItalic, Start: a, End: b}, nil

	case "BLOCKQUOTE":
		pos, ok := oneInt(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdBlockquote, Pos: pos}, nil

	case "ORDERED_LIST":
		pos, ok := oneInt(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdOrderedList, Pos: pos}, nil

	case "UNORDERED_LIST":
		pos, ok := oneInt(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdUnorderedList, Pos: pos}, nil

	case "CODE":
		a, b, ok := twoInts(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdCode, Start: a, End: b}, nil

	case "HORIZONTAL_RULE":
		pos, ok := oneInt(fields)
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdHorizontalRule, Pos: pos}, nil

	case "LINK":
		if len(fields) != 2 {
			return markdown.Command{}, ErrUnknownCommand
		}
		rest := strings.SplitN(fields[1], " ", 3)
		if len(rest) != 3 {
			return markdown.Command{}, ErrUnknownCommand
		}
		start, ok := parseUint(rest[0])
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		end, ok := parseUint(rest[1])
		if !ok {
			return markdown.Command{}, ErrUnknownCommand
		}
		return markdown.Command{Kind: markdown.CmdLink, Start: start, End: end, URL: rest[2]}, nil
	}

	return markdown.Command{}, ErrUnknownCommand
}

func oneInt(fields []string) (int, bool) {
	if len(fields) != 2 {
		return 0, false
	}
	return parseUint(strings.TrimSpace(fields[1]))
}

func twoInts(fields []string) (int, int, bool) {
	if len(fields) != 2 {
		return 0, 0, false
	}
	parts := strings.Fields(fields[1])
	if len(parts) != 2 {
		return 0, 0, false
	}
	a, ok1 := parseUint(parts[0])
	b, ok2 := parseUint(parts[1])
	return a, b, ok1 && ok2
}

func splitPosAndRest(fields []string) (int, string, bool) {
	if len(fields) != 2 {
		return 0, "", false
	}
	rest := strings.SplitN(fields[1], " ", 2)
	if len(rest) != 2 {
		return 0, "", false
	}
	pos, ok := parseUint(rest[0])
	return pos, rest[1], ok
}

// parseUint parses a non-negative decimal integer, matching the
// original C source's unsigned %zu scan: a leading '-' is a parse
// failure here rather than a negative int, so a caller never has to
// guard against negative positions reaching the document layer.
func parseUint(s string) (int, bool) {
	n, err := strconv.ParseUint(s, 10, 0)
	if err != nil {
		return 0, false
	}
	return int(n), true
}
