package agents

import (
	"context"
	"fmt"
	"strings"
)

const (
	ChatUnavailable = "Chat não disponível. Configure a API key."
	ChatError       = "Desculpe, tive um problema. Tente novamente!"
	chatHistoryMax  = 10
)

const chatPrompt = `Você é Nuttro IA, um coach de nutrição virtual amigável e motivador.

CONTEXTO DO PACIENTE:
- Nome: %s
- Objetivo: %s
- Dias na jornada: %d
- Nível de adesão: %s
- Última consulta: %s
- Metas ativas: %s

HISTÓRICO RECENTE:
- Check-ins: %s
- Refeições: %s

COMO RESPONDER:
- Seja empático, positivo e use linguagem simples
- Celebre conquistas e ofereça apoio nas dificuldades
- Dê sugestões práticas
- No máximo 3 parágrafos

NUNCA:
- Faça diagnósticos médicos
- Prometa resultados irreais
- Critique de forma severa
- Substitua o nutricionista

Responda em português do Brasil.`

type ChatTurn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatContext struct {
	Nome            string
	Objetivo        string
	DiasJornada     int
	NivelAdesao     string
	UltimaConsulta  string
	Metas           []string
	CheckinsResumo  string
	RefeicoesResumo string
}

type ChatAgent struct {
	*runner
}

type chatState struct {
	pc     ChatContext
	turns  []Message
	intent string
	reply  string
}

// Reply runs the two-step pipeline: understand the intent, then generate the answer.
func (a *ChatAgent) Reply(ctx context.Context, message string, pc ChatContext, history []ChatTurn) string {
	if !a.enabled() {
		return ChatUnavailable
	}

	if len(history) > chatHistoryMax {
		history = history[len(history)-chatHistoryMax:]
	}
	st := &chatState{pc: pc}
	for _, h := range history {
		role := RoleAssistant
		if h.Role == RoleUser {
			role = RoleUser
		}
		st.turns = append(st.turns, Message{Role: role, Content: h.Content})
	}
	st.turns = append(st.turns, Message{Role: RoleUser, Content: message})

	for _, step := range []func(context.Context, *chatState){a.understand, a.respond} {
		step(ctx, st)
	}
	return st.reply
}

// understand only routes to the responder for now.
func (a *ChatAgent) understand(_ context.Context, st *chatState) {
	st.intent = "generate_response"
}

func (a *ChatAgent) respond(ctx context.Context, st *chatState) {
	pc := withChatDefaults(st.pc)
	system := fmt.Sprintf(chatPrompt, pc.Nome, pc.Objetivo, pc.DiasJornada, pc.NivelAdesao,
		pc.UltimaConsulta, toJSON(pc.Metas), pc.CheckinsResumo, pc.RefeicoesResumo)

	msgs := append([]Message{{Role: RoleSystem, Content: system}}, st.turns...)
	resp, err := a.complete(ctx, KindChat, Request{Messages: msgs, Temperature: 0.4},
		map[string]any{"mensagem": st.turns[len(st.turns)-1].Content, "intencao": st.intent})
	if err != nil {
		st.reply = ChatError
		return
	}
	st.reply = strings.TrimSpace(resp.Content)
}

func withChatDefaults(pc ChatContext) ChatContext {
	if pc.Nome == "" {
		pc.Nome = "Paciente"
	}
	if pc.Objetivo == "" {
		pc.Objetivo = "não definido"
	}
	if pc.NivelAdesao == "" {
		pc.NivelAdesao = "média"
	}
	if pc.UltimaConsulta == "" {
		pc.UltimaConsulta = "não registrada"
	}
	if pc.Metas == nil {
		pc.Metas = []string{}
	}
	if pc.CheckinsResumo == "" {
		pc.CheckinsResumo = "sem dados"
	}
	if pc.RefeicoesResumo == "" {
		pc.RefeicoesResumo = "sem dados"
	}
	return pc
}
