package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Store drivers
const (
	StoreMemory    = "memory"
	StoreLocal     = "local"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Auth modes
const (
	AuthJWT      = "jwt"
	AuthFirebase = "firebase"
	AuthNone     = "none"
)

var (
	defaultCourses = []string{
		"1ro Básico", "2do Básico", "3ro Básico", "4to Básico",
		"5to Básico", "6to Básico", "7mo Básico", "8vo Básico",
		"1ro Medio", "2do Medio", "3ro Medio", "4to Medio",
	}
	defaultSubjects = []string{
		"Lenguaje", "Matemática", "Historia", "Ciencias Naturales", "Inglés",
		"Educación Física", "Artes Visuales", "Música", "Tecnología", "Orientación", "Religión",
	}
)

type Config struct {
	AppName          string
	Env              string
	Build            string
	Debug            bool
	TestMode         bool
	WorkDir          string
	SecretKey        string
	RollbarToken     string
	DefaultFromEmail mail.Address
	SendgridApiKey   string
	ReportRecipients []mail.Address

	// catalog & canonical calendar zone
	TimeZone        string
	Courses         []string
	Subjects        []string
	InitialTeachers []string

	Store struct {
		Driver    string
		LocalPath string
	}
	Database struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}
	Firebase struct {
		ProjectID       string
		CredentialsFile string
	}
	Auth struct {
		Mode                 string
		TokenExpirationDelta time.Duration
	}
	Server struct {
		Host            string
		Address         string
		DebugHost       string
		DisableReqLogs  bool
		ShutdownTimeout time.Duration
	}

	location *time.Location
}

// Address returns the database "host:port".
func (c *Config) Address() string {
	return c.Database.Host + ":" + c.Database.Port
}

// Location returns the canonical zone all calendar days are computed in.
func (c *Config) Location() *time.Location {
	if c.location != nil {
		return c.location
	}
	if loc, err := time.LoadLocation(c.TimeZone); err == nil {
		return loc
	}
	return time.UTC
}

// NewConfig loads the configuration from the environment (and optional config/.env.<env> file).
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("appName", "Bitácora UTP")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("secretKey", "kq8#v2(lm0!cx9_=utp+bitacora)wz&5r1n$h7f^e3a")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("defaultFromEmail", "Bitácora UTP <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("reportRecipients", "")
	v.SetDefault("timeZone", "America/Santiago")
	v.SetDefault("courses", strings.Join(defaultCourses, ","))
	v.SetDefault("subjects", strings.Join(defaultSubjects, ","))
	v.SetDefault("initialTeachers", "")
	v.SetDefault("store.driver", StoreLocal)
	v.SetDefault("store.localPath", "data")
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "bitacora")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", false)
	v.SetDefault("firebase.projectId", "")
	v.SetDefault("firebase.credentialsFile", "")
	v.SetDefault("auth.mode", AuthJWT)
	v.SetDefault("auth.tokenExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		WorkDir:          wd,
		SecretKey:        v.GetString("secretKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		TimeZone:         v.GetString("timeZone"),
		Courses:          SplitList(v.GetString("courses")),
		Subjects:         SplitList(v.GetString("subjects")),
		InitialTeachers:  SplitList(v.GetString("initialTeachers")),
		ReportRecipients: parseAddressList(v.GetString("reportRecipients")),
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		log.Fatalf("config.defaultFromEmail: %v", err)
	}
	conf.DefaultFromEmail = *from

	loc, err := time.LoadLocation(conf.TimeZone)
	if err != nil {
		log.Fatalf("config.timeZone(%s): %v", conf.TimeZone, err)
	}
	conf.location = loc

	conf.Store.Driver = v.GetString("store.driver")
	conf.Store.LocalPath = v.GetString("store.localPath")

	conf.Database.Engine = v.GetString("database.engine")
	conf.Database.Host = v.GetString("database.host")
	conf.Database.Port = v.GetString("database.port")
	conf.Database.Name = v.GetString("database.name")
	conf.Database.User = v.GetString("database.user")
	conf.Database.Password = v.GetString("database.password")
	conf.Database.AdminUser = v.GetString("database.adminUser")
	conf.Database.AdminPassword = v.GetString("database.adminPassword")
	conf.Database.DisableTLS = v.GetBool("database.disableTLS")

	conf.Firebase.ProjectID = v.GetString("firebase.projectId")
	conf.Firebase.CredentialsFile = v.GetString("firebase.credentialsFile")

	conf.Auth.Mode = v.GetString("auth.mode")
	conf.Auth.TokenExpirationDelta = v.GetDuration("auth.tokenExpirationDelta")

	conf.Server.Host = v.GetString("server.host")
	conf.Server.Address = v.GetString("server.address")
	conf.Server.DebugHost = v.GetString("server.debugHost")
	conf.Server.DisableReqLogs = v.GetBool("server.disableReqLogs")
	conf.Server.ShutdownTimeout = v.GetDuration("server.shutdownTimeout")

	return conf
}

func parseAddressList(s string) []mail.Address {
	if CleanString(s) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err != nil {
		log.Fatalf("config.reportRecipients: %v", err)
	}
	addrs := make([]mail.Address, 0, len(list))
	for _, a := range list {
		addrs = append(addrs, *a)
	}
	return addrs
}
