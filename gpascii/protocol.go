package gpascii

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// SeqPrefix открывает каждую строку запроса и ответа: "#<seq> <body>".
	SeqPrefix = "#"

	// ErrorPrefix начинает тело ответа с ошибкой контроллера.
	ErrorPrefix = "error #"

	// CmdVersion - команда рукопожатия, ответ "ver=<version>".
	CmdVersion = "ver"

	// CmdLogin - команда входа "login <user> <password>".
	CmdLogin = "login"

	// MaxLineLength - максимальная длина строки протокола.
	MaxLineLength = 64 * 1024

	DefaultEndpoint = "192.168.0.200:1025"
	ConnectTimeout  = 5 * time.Second
	CommandTimeout  = 2 * time.Second
)

// Assignment - пара "имя=значение" в ответе на чтение.
type Assignment struct {
	Name  string
	Value Value
}

// Reply - разобранная строка ответа.
type Reply struct {
	Seq  uint64
	Body string
}

// FormatRequest собирает строку запроса с порядковым номером.
func FormatRequest(seq uint64, statements ...string) string {
	return fmt.Sprintf("%s%d %s\n", SeqPrefix, seq, strings.Join(statements, " "))
}

// FormatSet формирует оператор присваивания.
func FormatSet(name string, v Value) string {
	return Normalize(name) + "=" + v.String()
}

// ParseReply разбирает строку ответа "#<seq> <body>".
func ParseReply(line string) (Reply, error) {
	line = strings.TrimRight(line, "\r\n")
	if !strings.HasPrefix(line, SeqPrefix) {
		return Reply{}, &ProtocolError{Line: line, Message: "missing sequence prefix"}
	}

	head, body, _ := strings.Cut(line[len(SeqPrefix):], " ")
	seq, err := strconv.ParseUint(head, 10, 64)
	if err != nil {
		return Reply{}, &ProtocolError{Line: line, Message: "invalid sequence id"}
	}
	return Reply{Seq: seq, Body: strings.TrimSpace(body)}, nil
}

// ParseControllerError разбирает тело "error #<code>: <message>[: <name>]".
func ParseControllerError(body string) (*ControllerError, bool) {
	if !strings.HasPrefix(body, ErrorPrefix) {
		return nil, false
	}

	rest := body[len(ErrorPrefix):]
	codeStr, rest, _ := strings.Cut(rest, ":")
	code, err := strconv.Atoi(strings.TrimSpace(codeStr))
	if err != nil {
		code = ErrCodeSyntax
	}

	msg, name, _ := strings.Cut(strings.TrimSpace(rest), ":")
	return &ControllerError{
		Code:    code,
		Message: strings.TrimSpace(msg),
		Name:    strings.TrimSpace(name),
	}, true
}

// ParseAssignments разбирает тело ответа на чтение: "a=1 b=2.5".
func ParseAssignments(body string) ([]Assignment, error) {
	fields := strings.Fields(body)
	out := make([]Assignment, 0, len(fields))
	for _, field := range fields {
		name, raw, ok := strings.Cut(field, "=")
		if !ok || name == "" {
			return nil, &ProtocolError{Line: body, Message: "expected name=value"}
		}
		v, err := ParseValue(raw)
		if err != nil {
			return nil, &ProtocolError{Line: body, Message: err.Error()}
		}
		out = append(out, Assignment{Name: Normalize(name), Value: v})
	}
	return out, nil
}

// FormatError формирует тело ответа с ошибкой.
func FormatError(code int, message, name string) string {
	return (&ControllerError{Code: code, Message: message, Name: name}).Error()
}
