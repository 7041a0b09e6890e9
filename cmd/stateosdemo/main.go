// Command stateosdemo exercises the kernel's synchronization
// primitives end to end: a counting semaphore handing work to a pool of
// workers, and a bounded event queue relaying their results back to the
// reporting goroutine.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/doodle732/stateos/clock"
	"github.com/doodle732/stateos/evqueue"
	"github.com/doodle732/stateos/kconfig"
	"github.com/doodle732/stateos/klog"
	"github.com/doodle732/stateos/outcome"
	"github.com/doodle732/stateos/sem"
)

var (
	flagWorkers  = flag.Int("workers", 4, "number of worker goroutines")
	flagJobs     = flag.Int("jobs", 16, "number of jobs to dispatch")
	flagCapacity = flag.Uint("capacity", 4, "results event queue capacity")
	flagVerbose  = flag.Int("v", 0, "log verbosity")
)

func main() {
	flag.Parse()
	klog.SetLogToStderr(true)
	klog.SetVerbosity(*flagVerbose)

	clk := clock.New(kconfig.Default())
	defer clk.Close()

	jobs := sem.NewDynamic(clk, sem.Counting, 0, math.MaxUint32)
	results := evqueue.New(clk, uint32(*flagCapacity))

	var wg sync.WaitGroup
	var dispatched sync.WaitGroup
	dispatched.Add(*flagJobs)
	for id := 0; id < *flagWorkers; id++ {
		wg.Add(1)
		go worker(id, clk, jobs, results, &wg, &dispatched)
	}

	for i := 0; i < *flagJobs; i++ {
		jobs.Give()
	}

	// Workers decrement dispatched as each job completes; once every
	// dispatched job has been picked up, retiring the semaphore wakes
	// any workers still parked on an empty queue, and draining the
	// results queue afterwards lets report observe the last Push.
	go func() {
		dispatched.Wait()
		jobs.Destroy()
	}()
	go func() {
		wg.Wait()
		results.Kill()
	}()

	report(results)
}

// worker waits for a unit of work, does a trivial amount of it, and
// pushes its id as a result. It exits once the job semaphore is
// destroyed out from under it.
func worker(id int, clk *clock.Clock, jobs *sem.Semaphore, results *evqueue.Queue, wg, dispatched *sync.WaitGroup) {
	defer wg.Done()
	for {
		ev := jobs.WaitFor(clk.Count(time.Second))
		switch ev {
		case outcome.Success:
			results.Push(evqueue.Word(id))
			dispatched.Done()
		case outcome.Deleted, outcome.Stopped:
			return
		case outcome.Timeout:
			continue
		}
	}
}

// report drains the results queue until it is killed or deleted.
func report(results *evqueue.Queue) {
	var word evqueue.Word
	for {
		ev := results.Wait(&word)
		switch ev {
		case outcome.Success:
			fmt.Fprintf(os.Stdout, "worker %d reported in\n", word)
		case outcome.Deleted, outcome.Stopped:
			return
		}
	}
}
