package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/services"
	"github.com/rs/zerolog"
)

const (
	pingInterval = 25 * time.Second
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	maxWSMessage = 4096
)

type RealtimeController struct {
	RT        *services.RealtimeHub
	Pacientes *services.PacienteService
	Log       zerolog.Logger
}

// constructor
func NewRealtimeController(rt *services.RealtimeHub, ps *services.PacienteService, log zerolog.Logger) *RealtimeController {
	return &RealtimeController{RT: rt, Pacientes: ps, Log: log}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true }, // tighten behind ALB/CloudFront if needed
}

type wsCommand struct {
	Action string `json:"action"`
	Room   string `json:"room"`
}

// GET /api/ws
func (rc *RealtimeController) NutricionistaWS(c *gin.Context) {
	nutri := middlewares.CurrentNutricionista(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := services.NewWSClient(conn, nutri.ID, "nutricionista")
	rc.RT.Join(cl, services.NutricionistaRoom(nutri.ID))
	go rc.writePump(cl)

	rc.readPump(cl, func(cmd wsCommand) {
		pid, ok := strings.CutPrefix(cmd.Room, "paciente_")
		if !ok {
			return
		}
		id, err := services.ParseID(pid)
		if err != nil {
			return
		}
		switch cmd.Action {
		case "join":
			if _, err := rc.Pacientes.Get(c.Request.Context(), nutri.ID, id); err != nil {
				rc.Log.Warn().Str("nutricionista_id", nutri.ID.String()).Str("room", cmd.Room).Msg("join refused")
				return
			}
			rc.RT.Join(cl, services.PacienteRoom(id))
		case "leave":
			rc.RT.Leave(cl, services.PacienteRoom(id))
		}
	})
}

// GET /api/mobile/ws
func (rc *RealtimeController) PacienteWS(c *gin.Context) {
	p := middlewares.CurrentPaciente(c)
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	cl := services.NewWSClient(conn, p.ID, "paciente")
	rc.RT.Join(cl, services.PacienteRoom(p.ID))
	go rc.writePump(cl)
	rc.readPump(cl, nil)
}

// readPump owns the read side and unregisters the client when the socket closes.
func (rc *RealtimeController) readPump(cl *services.WSClient, handle func(wsCommand)) {
	defer func() {
		rc.RT.Unregister(cl)
		cl.Conn.Close()
	}()
	cl.Conn.SetReadLimit(maxWSMessage)
	_ = cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	cl.Conn.SetPongHandler(func(string) error {
		return cl.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, msg, err := cl.Conn.ReadMessage()
		if err != nil {
			return
		}
		if handle == nil {
			continue
		}
		var cmd wsCommand
		if json.Unmarshal(msg, &cmd) == nil {
			handle(cmd)
		}
	}
}

// writePump is the only writer on the connection; it exits when the hub closes Send.
func (rc *RealtimeController) writePump(cl *services.WSClient) {
	t := time.NewTicker(pingInterval)
	defer func() {
		t.Stop()
		cl.Conn.Close()
	}()
	for {
		select {
		case msg, ok := <-cl.Send:
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.Conn.WriteMessage(websocket.CloseMessage, nil)
				return
			}
			if err := cl.Conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-t.C:
			_ = cl.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
