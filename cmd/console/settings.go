package main

type Settings struct {
	ServerURL   string `env:"SERVER_URL,default=ws://localhost:8000/websocket"`
	APIBase     string `env:"API_BASE,default=http://localhost:8000"`
	Token       string `env:"SESSION_TOKEN"`
	CSRFToken   string `env:"CSRF_TOKEN"`
	Page        string `env:"PAGE,default=/admin/manage"`
	LogEncoding string `env:"LOG_ENCODING,default=console"`
}
