package main

import (
	"encoding/base64"
	"errors"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/labstack/echo/v4"
	"github.com/user0608/facewatch"
	"github.com/user0608/goones/answer"
	"github.com/user0608/goones/errs"
	"gocv.io/x/gocv"
)

var acceptedTypes = []string{"image/png", "image/jpeg"}

type statusResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type registerRequest struct {
	Name  string `json:"name"`
	Image string `json:"image"`
}

type systemStatus struct {
	CameraInitialized bool   `json:"camera_initialized"`
	LastError         string `json:"last_error,omitempty"`
	Timestamp         string `json:"timestamp"`
	facewatch.Stats
	LastDetected []facewatch.Detection `json:"last_detected"`
}

// requireEngine corta con 503 las rutas de gestión cuando el núcleo de
// reconocimiento no llegó a inicializarse; el resto del servidor sigue
// sirviendo estado y stream.
func requireEngine(engine *facewatch.Engine) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if engine == nil {
				return c.JSON(http.StatusServiceUnavailable, statusResponse{
					Status:  "error",
					Message: "el sistema de reconocimiento no está disponible",
				})
			}
			return next(c)
		}
	}
}

func NewRegisterHandle(engine *facewatch.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		var req registerRequest
		if err := c.Bind(&req); err != nil {
			return answer.Err(c, errs.BadRequestDirect("cuerpo de solicitud inválido"))
		}
		if req.Name == "" || req.Image == "" {
			return answer.Err(c, errs.BadRequestDirect("faltan el nombre o la imagen"))
		}
		content, err := decodeDataURL(req.Image)
		if err != nil {
			return answer.Err(c, errs.BadRequestDirect("no se pudo decodificar la imagen enviada"))
		}
		mime := mimetype.Detect(content)
		if !slices.Contains(acceptedTypes, mime.String()) {
			return answer.Err(c, errs.BadRequestDirect("solo se aceptan imágenes en formato PNG o JPG"))
		}
		img, err := gocv.IMDecode(content, gocv.IMReadColor)
		if err != nil {
			return answer.Err(c, errs.BadRequestDirect("no se pudo decodificar la imagen enviada"))
		}
		defer img.Close()
		if img.Empty() {
			return answer.Err(c, errs.BadRequestDirect("no se pudo decodificar la imagen enviada"))
		}

		msg, err := engine.RegisterFace(img, req.Name)
		if err != nil {
			registrations.WithLabelValues("error").Inc()
			return answer.Err(c, asRequestError(err))
		}
		registrations.WithLabelValues("success").Inc()
		return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg})
	}
}

func NewRetrainHandle(engine *facewatch.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		msg, err := engine.Train()
		if err != nil {
			trainings.WithLabelValues("error").Inc()
			return answer.Err(c, asRequestError(err))
		}
		trainings.WithLabelValues("success").Inc()
		return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg})
	}
}

func NewUsersHandle(engine *facewatch.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string][]string{"users": engine.Users()})
	}
}

// NewDeleteUserHandle elimina al usuario y, como política de esta capa,
// reentrena con lo que queda; el núcleo nunca reentrena solo. Un fallo
// del reentrenamiento se degrada a advertencia en el mensaje.
func NewDeleteUserHandle(engine *facewatch.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		msg, err := engine.DeleteUser(c.Param("name"))
		if err != nil {
			return answer.Err(c, asRequestError(err))
		}
		if len(engine.Users()) > 0 {
			if _, trainErr := engine.Train(); trainErr != nil {
				msg += " | advertencia: el reentrenamiento posterior falló: " + trainErr.Error()
			}
		}
		return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg})
	}
}

func NewSystemStatusHandle(cam *Camera, engine *facewatch.Engine) echo.HandlerFunc {
	return func(c echo.Context) error {
		status := systemStatus{
			CameraInitialized: cam.Opened(),
			LastError:         cam.LastError(),
			Timestamp:         time.Now().Format(time.RFC3339),
			LastDetected:      []facewatch.Detection{},
		}
		if engine != nil {
			status.Stats = engine.Stats()
			status.LastDetected = engine.LastDetections()
		}
		return c.JSON(http.StatusOK, status)
	}
}

func NewCameraReconnectHandle(cam *Camera) echo.HandlerFunc {
	return func(c echo.Context) error {
		ok, msg := cam.Reconnect()
		if !ok {
			return answer.Err(c, errs.InternalErrorDirect(msg))
		}
		return c.JSON(http.StatusOK, statusResponse{Status: "success", Message: msg})
	}
}

// asRequestError traduce la taxonomía del núcleo al envoltorio HTTP.
func asRequestError(err error) error {
	var ambiguous *facewatch.AmbiguousDetectionError
	switch {
	case errors.As(err, &ambiguous):
		return errs.BadRequestDirect(err.Error())
	case errors.Is(err, facewatch.ErrIdentityNotFound):
		return errs.NotFoundDirect(err.Error())
	case errors.Is(err, facewatch.ErrInsufficientData),
		errors.Is(err, facewatch.ErrNoSampleDir):
		return errs.BadRequestDirect(err.Error())
	default:
		return errs.InternalErrorDirect(err.Error())
	}
}

// decodeDataURL acepta tanto un data URL base64 como el base64 pelado.
func decodeDataURL(data string) ([]byte, error) {
	if idx := strings.Index(data, ","); idx >= 0 && strings.HasPrefix(data, "data:") {
		data = data[idx+1:]
	}
	return base64.StdEncoding.DecodeString(data)
}
