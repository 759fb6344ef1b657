// Command stress-hog is a local-development workload generator. It burns CPU,
// grows memory, and can wedge itself in uninterruptible sleep so a running
// agent has something to classify.
package main

import (
	"flag"
	"log"
	"os"
	"runtime"
	"syscall"
	"time"
)

func main() {
	var (
		mode     string
		duration time.Duration
		memMB    int
	)
	flag.StringVar(&mode, "mode", "cpu", "workload: cpu, memory, or stall")
	flag.DurationVar(&duration, "duration", time.Minute, "how long to run")
	flag.IntVar(&memMB, "mem-mb", 512, "memory to hold in memory mode")
	flag.Parse()

	log.Printf("stress-hog pid=%d mode=%s duration=%s", os.Getpid(), mode, duration)
	deadline := time.Now().Add(duration)

	switch mode {
	case "cpu":
		burnCPU(deadline)
	case "memory":
		holdMemory(deadline, memMB)
	case "stall":
		stall(deadline)
	default:
		log.Fatalf("unknown mode %q", mode)
	}
}

// burnCPU spins every core on pointless arithmetic until the deadline.
func burnCPU(deadline time.Time) {
	done := make(chan struct{})
	for i := 0; i < runtime.NumCPU(); i++ {
		go func() {
			x := uint64(1)
			for time.Now().Before(deadline) {
				x = x*2862933555777941757 + 3037000493
			}
			_ = x
			done <- struct{}{}
		}()
	}
	for i := 0; i < runtime.NumCPU(); i++ {
		<-done
	}
}

// holdMemory allocates and touches memMB megabytes, then sleeps so the pages
// stay resident.
func holdMemory(deadline time.Time, memMB int) {
	block := make([]byte, memMB<<20)
	for i := 0; i < len(block); i += 4096 {
		block[i] = byte(i)
	}
	log.Printf("holding %d MiB", memMB)
	time.Sleep(time.Until(deadline))
	_ = block[0]
}

// stall SIGSTOPs its own process group member so liveness probes see a
// stopped, unresponsive process.
func stall(deadline time.Time) {
	pid := os.Getpid()
	if err := syscall.Kill(pid, syscall.SIGSTOP); err != nil {
		log.Fatalf("self-stop failed: %v", err)
	}
	// Only reached after an external SIGCONT.
	log.Printf("resumed, sleeping until deadline")
	time.Sleep(time.Until(deadline))
}
