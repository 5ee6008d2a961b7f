// main.go - SolConnect relay ping tool.
// Copyright (C) 2024  The SolConnect developers.
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program.  If not, see <http://www.gnu.org/licenses/>.

package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"flag"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solconnect/solconnect/client"
	"github.com/solconnect/solconnect/core/log"
	"github.com/solconnect/solconnect/core/message"
)

const pingPayloadSize = 64

func sendPing(c *client.Client, timeout time.Duration) bool {
	payload := make([]byte, pingPayloadSize)
	if _, err := rand.Read(payload); err != nil {
		panic(err)
	}
	ping := message.NewPing(payload)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	reply, err := c.Do(ctx, ping)
	if err != nil {
		fmt.Printf("\nerror: %v\n", err)
		return false
	}

	pong, ok := reply.(*message.Pong)
	if !ok {
		fmt.Printf("\nunexpected reply type: %v\n", reply.Type())
		return false
	}
	return pong.RefPingID == ping.ID && bytes.Equal(pong.Data, ping.Data)
}

func sendPings(c *client.Client, count, concurrency int, timeout time.Duration) int {
	var passed uint64

	wg := new(sync.WaitGroup)
	sem := make(chan struct{}, concurrency)
	for i := 0; i < count; i++ {
		sem <- struct{}{}
		wg.Add(1)
		go func() {
			if sendPing(c, timeout) {
				fmt.Printf("!")
				atomic.AddUint64(&passed, 1)
			} else {
				fmt.Printf("~")
			}
			wg.Done()
			<-sem
		}()
	}
	wg.Wait()
	fmt.Printf("\n")

	return int(passed)
}

func main() {
	var addr string
	var count int
	var concurrency int
	var timeout time.Duration

	flag.StringVar(&addr, "addr", "127.0.0.1:4433", "Relay address")
	flag.IntVar(&count, "count", 10, "Number of pings to send")
	flag.IntVar(&concurrency, "concurrency", 1, "Number of pings in flight")
	flag.DurationVar(&timeout, "timeout", 10*time.Second, "Per ping timeout")
	flag.Parse()

	logBackend, err := log.New("", "ERROR", false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	c, err := client.Dial(ctx, addr, logBackend)
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to %v: %v\n", addr, err)
		os.Exit(1)
	}
	defer c.Close()

	fmt.Printf("Sending %d pings to %v\n", count, addr)
	passed := sendPings(c, count, concurrency, timeout)
	percent := float64(passed) * 100 / float64(count)
	fmt.Printf("Success rate is %f percent (%d/%d)\n", percent, passed, count)
	if passed != count {
		os.Exit(1)
	}
}
