package export

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/yandex/schedprof/schedprof/pkg/profile/model"
)

// Stack is one collapsed call path, root first, weighted by self time in microseconds.
type Stack struct {
	Frames []string
	Value  int64
}

func (s *Stack) Key() string {
	return strings.Join(s.Frames, ";")
}

// Collapse folds the flamechart into stacks with the same call path merged.
// Stacks are ordered by path; paths without self time are omitted.
func Collapse(chart model.Flamechart) []Stack {
	paths := make([][][]string, len(chart))
	children := make([][]model.Milliseconds, len(chart))
	for depth, layer := range chart {
		paths[depth] = make([][]string, len(layer))
		children[depth] = make([]model.Milliseconds, len(layer))
	}

	for depth, layer := range chart {
		for i := range layer {
			f := &layer[i]
			parent := -1
			if depth > 0 {
				parent = chart[depth-1].Parent(f)
			}
			if parent < 0 {
				paths[depth][i] = []string{f.Name}
				continue
			}
			children[depth-1][parent] += f.Duration
			prefix := paths[depth-1][parent]
			path := make([]string, len(prefix), len(prefix)+1)
			copy(path, prefix)
			paths[depth][i] = append(path, f.Name)
		}
	}

	merged := make(map[string]*Stack)
	for depth, layer := range chart {
		for i := range layer {
			self := (layer[i].Duration - children[depth][i]).Micros()
			if self <= 0 {
				continue
			}
			s := Stack{Frames: paths[depth][i]}
			key := s.Key()
			if prev, ok := merged[key]; ok {
				prev.Value += self
				continue
			}
			s.Value = self
			merged[key] = &s
		}
	}

	res := make([]Stack, 0, len(merged))
	for _, s := range merged {
		res = append(res, *s)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Key() < res[j].Key()
	})
	return res
}

////////////////////////////////////////////////////////////////////////////////

// WriteCollapsed writes stacks in the folded format: "root;child;leaf 1234".
func WriteCollapsed(w io.Writer, stacks []Stack) error {
	bw := bufio.NewWriter(w)
	for i := range stacks {
		if _, err := fmt.Fprintf(bw, "%s %d\n", stacks[i].Key(), stacks[i].Value); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func ReadCollapsed(r io.Reader) ([]Stack, error) {
	res := make([]Stack, 0)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.LastIndexByte(line, ' ')
		if idx == -1 {
			return nil, errors.New("collapsed: malformed input")
		}
		value, err := strconv.ParseInt(line[idx+1:], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("collapsed: malformed input: %w", err)
		}
		res = append(res, Stack{
			Frames: strings.Split(line[:idx], ";"),
			Value:  value,
		})
	}
	return res, scanner.Err()
}

func MarshalCollapsed(stacks []Stack) ([]byte, error) {
	buf := new(bytes.Buffer)
	err := WriteCollapsed(buf, stacks)
	return buf.Bytes(), err
}
