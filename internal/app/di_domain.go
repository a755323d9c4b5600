package app

import (
	"fmt"

	auditHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/audit/http"
	authHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/auth/http"
	"github.com/Fadil369/brainsait-doctor-hub-sub001/internal/http"
	gateHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/http"
	gateRepository "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/repository"
	gateService "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/service"
	gateUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/llmgate/usecase"
	patientsHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/http"
	patientUseCase "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/patients/usecase"
	storageHTTP "github.com/Fadil369/brainsait-doctor-hub-sub001/internal/storage/http"
)

// PatientUseCase returns the patient records use case.
func (c *Container) PatientUseCase() (patientUseCase.UseCase, error) {
	var err error
	c.patientUCInit.Do(func() {
		c.patientUC, err = c.initPatientUseCase()
		if err != nil {
			c.initErrors["patientUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["patientUseCase"]; exists {
		return nil, storedErr
	}
	return c.patientUC, nil
}

// GateUseCase returns the LLM safety gate use case.
func (c *Container) GateUseCase() (gateUseCase.UseCase, error) {
	var err error
	c.gateUCInit.Do(func() {
		c.gateUC, err = c.initGateUseCase()
		if err != nil {
			c.initErrors["gateUseCase"] = err
		}
	})
	if err != nil {
		return nil, err
	}
	if storedErr, exists := c.initErrors["gateUseCase"]; exists {
		return nil, storedErr
	}
	return c.gateUC, nil
}

// initPatientUseCase creates the patient use case with all its dependencies.
func (c *Container) initPatientUseCase() (patientUseCase.UseCase, error) {
	secureStorage, err := c.SecureStorage()
	if err != nil {
		return nil, fmt.Errorf("failed to get secure storage for patient use case: %w", err)
	}

	auditor, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for patient use case: %w", err)
	}

	baseUseCase := patientUseCase.NewPatientUseCase(secureStorage, auditor)

	// Wrap with metrics if enabled
	if c.config.MetricsEnabled {
		businessMetrics, err := c.BusinessMetrics()
		if err != nil {
			return nil, fmt.Errorf("failed to get business metrics for patient use case: %w", err)
		}
		return patientUseCase.NewUseCaseWithMetrics(baseUseCase, businessMetrics), nil
	}

	return baseUseCase, nil
}

// initGateUseCase creates the LLM safety gate use case with all its dependencies.
func (c *Container) initGateUseCase() (gateUseCase.UseCase, error) {
	store, err := c.KVStore()
	if err != nil {
		return nil, fmt.Errorf("failed to get kv store for gate use case: %w", err)
	}

	auditor, err := c.AuditLogger()
	if err != nil {
		return nil, fmt.Errorf("failed to get audit logger for gate use case: %w", err)
	}

	return gateUseCase.NewGateUseCase(
		gateUseCase.DefaultConfig(),
		gateRepository.NewKVConsentRepository(store),
		gateService.NewRedactor(gateService.DefaultRules()),
		auditor,
	), nil
}

// httpHandlers assembles the per-domain HTTP handlers mounted on the server.
func (c *Container) httpHandlers() (http.Handlers, error) {
	logger := c.Logger()

	authUC, err := c.AuthUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get auth use case for http handlers: %w", err)
	}

	secureStorage, err := c.SecureStorage()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get secure storage for http handlers: %w", err)
	}

	auditor, err := c.AuditLogger()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get audit logger for http handlers: %w", err)
	}

	patientUC, err := c.PatientUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get patient use case for http handlers: %w", err)
	}

	auditUC, err := c.AuditUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get audit use case for http handlers: %w", err)
	}

	gateUC, err := c.GateUseCase()
	if err != nil {
		return http.Handlers{}, fmt.Errorf("failed to get gate use case for http handlers: %w", err)
	}

	return http.Handlers{
		Auth:     authHTTP.NewAuthHandler(authUC, logger),
		Storage:  storageHTTP.NewStorageHandler(secureStorage, auditor, logger),
		Patients: patientsHTTP.NewPatientHandler(patientUC, logger),
		Audit:    auditHTTP.NewAuditHandler(auditUC, logger),
		Gate:     gateHTTP.NewGateHandler(gateUC, logger),
	}, nil
}
