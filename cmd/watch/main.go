// Command watch polls a set of fencer nodes and prints who each one thinks
// the leader is, until they agree.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ryandielhenn/fencer/pkg/peer"
	"github.com/ryandielhenn/fencer/pkg/state"
)

type view struct {
	addr state.Address
	st   state.MemberState
	err  error
}

func main() {
	nodes := flag.String("nodes", "localhost:4000", "comma separated node addresses")
	interval := flag.Duration("interval", time.Second, "time between polls")
	n := flag.Int("n", 30, "max polls before giving up")
	timeout := flag.Duration("timeout", 2*time.Second, "per request timeout")
	flag.Parse()

	addrs := state.ParseAddressList(*nodes, state.DefaultPort)
	if len(addrs) == 0 {
		fmt.Fprintln(os.Stderr, "watch: no nodes given")
		os.Exit(2)
	}
	// State never announces, so the client needs no self address.
	client := peer.NewClient("", peer.WithPullTimeout(*timeout))

	start := time.Now()
	for i := 0; i < *n; i++ {
		views := poll(context.Background(), client, addrs)
		leader, agreed := consensus(views)
		for _, v := range views {
			if v.err != nil {
				fmt.Printf("  %-22s error: %v\n", v.addr, v.err)
				continue
			}
			fmt.Printf("  %-22s leader=%-22s members=%d\n", v.addr, v.st.Leader, len(v.st.Members))
		}
		if agreed {
			fmt.Printf("Converged on %s after %s\n", leader, time.Since(start).Round(time.Millisecond))
			return
		}
		fmt.Println("--")
		time.Sleep(*interval)
	}
	fmt.Printf("No agreement after %d polls (%s)\n", *n, time.Since(start).Round(time.Millisecond))
	os.Exit(1)
}

func poll(ctx context.Context, client *peer.Client, addrs []state.Address) []view {
	views := make([]view, len(addrs))
	var wg sync.WaitGroup
	for i, addr := range addrs {
		wg.Add(1)
		go func(i int, addr state.Address) {
			defer wg.Done()
			st, err := client.State(ctx, addr)
			views[i] = view{addr: addr, st: st, err: err}
		}(i, addr)
	}
	wg.Wait()
	return views
}

// consensus reports the leader when every node answered with the same one.
func consensus(views []view) (state.Address, bool) {
	var leader state.Address
	for i, v := range views {
		if v.err != nil || v.st.Leader == "" {
			return "", false
		}
		if i == 0 {
			leader = v.st.Leader
		} else if v.st.Leader != leader {
			return "", false
		}
	}
	return leader, true
}
