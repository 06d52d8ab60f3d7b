package engine

import (
	"fmt"
	"sort"
	"strings"

	serrors "git.home.luguber.info/inful/sitepipe/internal/errors"
)

// orderPipelines returns pipelines in execution order using Kahn's algorithm.
// Among pipelines whose dependencies are satisfied the earliest declared runs
// first, so configurations without dependencies keep declaration order.
func orderPipelines(pipelines []*Pipeline) ([]*Pipeline, error) {
	index := make(map[string]int, len(pipelines))
	for i, p := range pipelines {
		index[pipelineKey(p.Name)] = i
	}

	inDegree := make([]int, len(pipelines))
	dependents := make([][]int, len(pipelines))
	for i, p := range pipelines {
		for _, dep := range p.DependsOn {
			j, ok := index[pipelineKey(dep)]
			if !ok {
				return nil, serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
					fmt.Sprintf("pipeline %q depends on unknown pipeline %q", p.Name, dep)).
					WithContext("pipeline", p.Name).
					WithContext("depends_on", dep)
			}
			if j == i {
				return nil, serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
					fmt.Sprintf("pipeline %q depends on itself", p.Name)).
					WithContext("pipeline", p.Name)
			}
			dependents[j] = append(dependents[j], i)
			inDegree[i]++
		}
	}

	var ready []int
	for i := range pipelines {
		if inDegree[i] == 0 {
			ready = append(ready, i)
		}
	}

	result := make([]*Pipeline, 0, len(pipelines))
	for len(ready) > 0 {
		sort.Ints(ready)
		current := ready[0]
		ready = ready[1:]
		result = append(result, pipelines[current])
		for _, next := range dependents[current] {
			inDegree[next]--
			if inDegree[next] == 0 {
				ready = append(ready, next)
			}
		}
	}

	if len(result) != len(pipelines) {
		var cyclic []string
		for i, p := range pipelines {
			if inDegree[i] > 0 {
				cyclic = append(cyclic, p.Name)
			}
		}
		return nil, serrors.New(serrors.CategoryConfig, serrors.SeverityFatal,
			fmt.Sprintf("circular pipeline dependency involving %v", cyclic))
	}
	return result, nil
}

// pipelineKey folds case; pipeline names are matched case-insensitively.
func pipelineKey(name string) string { return strings.ToLower(name) }
