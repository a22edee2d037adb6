package service

import "sync"

type job func()

// pool runs submitted jobs on a fixed number of goroutines.
type pool struct {
	numWorkers int
	jobs       chan job
	wg         sync.WaitGroup
}

func newPool(numWorkers int) *pool {
	return &pool{
		numWorkers: max(numWorkers, 1),
		jobs:       make(chan job),
	}
}

func (p *pool) start() {
	for range p.numWorkers {
		p.wg.Go(func() {
			for j := range p.jobs {
				j()
			}
		})
	}
}

// runAll submits every job and blocks until all of them returned.
func (p *pool) runAll(jobs []job) {
	var done sync.WaitGroup
	for _, j := range jobs {
		done.Add(1)
		p.jobs <- func() {
			defer done.Done()
			j()
		}
	}
	done.Wait()
}

func (p *pool) close() {
	close(p.jobs)
	p.wg.Wait()
}
