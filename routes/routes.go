package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nuttroadm/backendnuttro/controllers"
	"github.com/nuttroadm/backendnuttro/middlewares"
	"github.com/nuttroadm/backendnuttro/utils"
	"github.com/rs/zerolog"
)

// Deps is everything the router wires; main builds it once.
type Deps struct {
	Log         zerolog.Logger
	CORSOrigins []string
	DevRoutes   bool

	Tokens *utils.TokenIssuer
	Loader middlewares.PrincipalLoader

	Auth          *controllers.AuthController
	Pacientes     *controllers.PacienteController
	Metas         *controllers.MetaController
	Planos        *controllers.PlanoController
	Agendamentos  *controllers.AgendamentoController
	Consultas     *controllers.ConsultaController
	Status        *controllers.StatusController
	Analytics     *controllers.AnalyticsController
	IA            *controllers.RecommendationController
	WhatsApp      *controllers.WhatsAppController
	Webhooks      *controllers.WebhookController
	Mobile        *controllers.MobileController
	Devices       *controllers.DeviceController
	Notifications *controllers.NotificationController
	Uploads       *controllers.ImageUploadController
	Realtime      *controllers.RealtimeController
	Dev           *controllers.DevController
}

func SetupRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(middlewares.Recovery(d.Log), middlewares.RequestLogger(d.Log), middlewares.CORS(d.CORSOrigins))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	nutriAuth := middlewares.NutricionistaAuth(d.Tokens, d.Loader)
	pacienteAuth := middlewares.PacienteAuth(d.Tokens, d.Loader)

	// Public auth routes
	auth := r.Group("/api/auth")
	{
		auth.POST("/register", d.Auth.Register)
		auth.POST("/login", d.Auth.Login)
		auth.POST("/google", d.Auth.Google)
		auth.POST("/paciente/register", d.Auth.RegisterPaciente)
		auth.POST("/paciente/login", d.Auth.LoginPaciente)
		auth.GET("/me", nutriAuth, d.Auth.Me)
		auth.PUT("/me", nutriAuth, d.Auth.UpdateMe)
	}

	r.POST("/api/webhooks/evolution", d.Webhooks.Evolution)

	// Web console, nutritionist-scoped
	api := r.Group("/api")
	api.Use(nutriAuth)
	{
		api.GET("/pacientes", d.Pacientes.List)
		api.POST("/pacientes", d.Pacientes.Create)
		api.POST("/pacientes/import", d.Pacientes.Import)
		api.GET("/pacientes/export", d.Pacientes.Export)
		api.GET("/pacientes/:id", d.Pacientes.Get)
		api.PUT("/pacientes/:id", d.Pacientes.Update)
		api.DELETE("/pacientes/:id", d.Pacientes.Delete)
		api.GET("/pacientes/:id/evolucao", d.Pacientes.Evolucao)

		api.GET("/pacientes/:id/metas", d.Metas.List)
		api.POST("/pacientes/:id/metas", d.Metas.Create)
		api.PUT("/metas/:id", d.Metas.Update)
		api.DELETE("/metas/:id", d.Metas.Delete)

		api.GET("/pacientes/:id/planos", d.Planos.List)
		api.POST("/pacientes/:id/planos", d.Planos.Create)
		api.POST("/pacientes/:id/planos/gerar", d.Planos.Gerar)
		api.GET("/planos/:id", d.Planos.Get)
		api.PUT("/planos/:id", d.Planos.Update)
		api.DELETE("/planos/:id", d.Planos.Delete)
		api.GET("/planos/:id/pdf", d.Planos.PDF)

		api.GET("/agendamentos", d.Agendamentos.List)
		api.POST("/agendamentos", d.Agendamentos.Create)
		api.GET("/agendamentos/:id", d.Agendamentos.Get)
		api.PUT("/agendamentos/:id", d.Agendamentos.Update)
		api.DELETE("/agendamentos/:id", d.Agendamentos.Delete)

		api.GET("/consultas", d.Consultas.List)
		api.POST("/consultas", d.Consultas.Create)
		api.GET("/consultas/:id", d.Consultas.Get)
		api.PUT("/consultas/:id", d.Consultas.Update)
		api.DELETE("/consultas/:id", d.Consultas.Delete)
		api.POST("/consultas/:id/insights", d.Consultas.Insights)

		api.GET("/status-personalizados", d.Status.List)
		api.POST("/status-personalizados", d.Status.Create)
		api.PATCH("/status-personalizados/:id", d.Status.Update)
		api.DELETE("/status-personalizados/:id", d.Status.Delete)

		api.GET("/dashboard/stats", d.Analytics.Stats)
		api.GET("/alertas", d.Analytics.Alertas)
		api.PATCH("/alertas/:id/lido", d.Analytics.MarkAlertaLido)

		api.POST("/ia/analisar-refeicao", d.IA.AnalisarRefeicao)
		api.POST("/ia/sugestoes-plano", d.IA.SugestoesPlano)
		api.POST("/ia/coach-comportamental", d.IA.Coach)
		api.POST("/ia/chat", d.IA.Chat)

		api.POST("/whatsapp/create-instance", d.WhatsApp.CreateInstance)
		api.GET("/whatsapp/qrcode", d.WhatsApp.QRCode)
		api.GET("/whatsapp/status", d.WhatsApp.Status)
		api.POST("/whatsapp/disconnect", d.WhatsApp.Disconnect)
		api.GET("/whatsapp/chats", d.WhatsApp.Chats)
		api.GET("/whatsapp/chats/marcacoes", d.WhatsApp.Marcacoes)
		api.PATCH("/whatsapp/chats/:jid/marcacao", d.WhatsApp.SetChatMarcacao)
		api.GET("/whatsapp/messages/*jid", d.WhatsApp.Messages)
		api.POST("/whatsapp/send", d.WhatsApp.Send)

		api.GET("/mensagens/:paciente_id", d.WhatsApp.ListMensagens)
		api.POST("/mensagens", d.WhatsApp.SendMensagem)
		api.PATCH("/mensagens/:id/marcacao", d.WhatsApp.SetMensagemMarcacao)
		api.PATCH("/conversas/:id/marcacao", d.WhatsApp.SetConversaMarcacao)
		api.PUT("/conversas/:telefone/observacoes", d.WhatsApp.SetObservacoes)
		api.PUT("/conversas/:telefone/marcacao", d.WhatsApp.SetMarcacaoByPhone)

		api.POST("/uploads/imagem", d.Uploads.Upload)
		api.GET("/ws", d.Realtime.NutricionistaWS)

		if d.DevRoutes && d.Dev != nil {
			api.POST("/dev/push/:paciente_id", d.Dev.PushTest)
		}
	}

	// Patient app
	mobile := r.Group("/api/mobile")
	mobile.Use(pacienteAuth)
	{
		mobile.GET("/me", d.Mobile.Me)
		mobile.GET("/dashboard", d.Mobile.Dashboard)
		mobile.POST("/checkin", d.Mobile.Checkin)
		mobile.GET("/checkins", d.Mobile.Checkins)
		mobile.POST("/refeicao", d.Mobile.Refeicao)
		mobile.GET("/refeicoes", d.Mobile.Refeicoes)
		mobile.POST("/chat", d.Mobile.Chat)
		mobile.GET("/chat/history", d.Mobile.ChatHistory)
		mobile.GET("/metas", d.Mobile.Metas)
		mobile.GET("/plano", d.Mobile.Plano)
		mobile.POST("/devices", d.Devices.Register)
		mobile.PATCH("/notificacoes", d.Notifications.Toggle)
		mobile.GET("/ws", d.Realtime.PacienteWS)
	}

	return r
}
