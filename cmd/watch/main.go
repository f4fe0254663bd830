package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/gorilla/websocket"

	"robogrid.ai/internal/protocol"
	"robogrid.ai/internal/sim/encoding"
	"robogrid.ai/internal/sim/world"
)

func main() {
	var (
		url     = flag.String("url", "ws://localhost:8080/v1/observer/ws", "observer ws url")
		every   = flag.Int("every", 0, "frame interval in rounds (0: server default)")
		grid    = flag.Bool("grid", true, "print the occupancy grid with every frame")
		compact = flag.Bool("compact", false, "ask for run-length encoded grids")
		exit    = flag.Bool("exit_on_done", true, "disconnect once the world reports done")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[watch] ", log.LstdFlags|log.Lmicroseconds)
	conn, _, err := websocket.DefaultDialer.Dial(*url, nil)
	if err != nil {
		logger.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	sub := protocol.SubscribeMsg{
		Type:            protocol.TypeSubscribe,
		ProtocolVersion: protocol.Version,
		Every:           *every,
		Compact:         *compact,
	}
	if err := conn.WriteJSON(sub); err != nil {
		logger.Fatalf("send SUBSCRIBE: %v", err)
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		base, err := protocol.DecodeBase(msg)
		if err != nil {
			continue
		}
		switch base.Type {
		case protocol.TypeFrame:
			var f protocol.FrameMsg
			if err := json.Unmarshal(msg, &f); err != nil {
				continue
			}
			logger.Printf("FRAME world=%s round=%d population=%d moves=%d done=%v", f.WorldID, f.Round, f.Population, f.Moves, f.Done)
			if f.GridRLE != "" {
				g, err := encoding.DecodeGrid(f.GridRLE, f.Size)
				if err != nil {
					logger.Printf("bad grid_rle: %v", err)
					continue
				}
				f.Grid = g
			}
			if *grid {
				fmt.Println(world.FormatOccupancy(f.Grid))
			}
			if f.Done && *exit {
				return
			}

		case protocol.TypeError:
			var e protocol.ErrorMsg
			if err := json.Unmarshal(msg, &e); err != nil {
				continue
			}
			logger.Printf("ERROR code=%s message=%s", e.Code, e.Message)
			return
		}
	}
}
