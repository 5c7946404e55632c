package p6k

import (
	"fmt"
	"sync"

	"github.com/ornl-epics/parker6k/models"
	"github.com/sirupsen/logrus"
)

// Registry сопоставляет имена контроллеров их экземплярам. Это явный
// объект, а не процессный синглтон: владелец передает его туда, где
// нужны помощники создания и поиска.
type Registry struct {
	mu          sync.RWMutex
	controllers map[string]*Controller
	log         *logrus.Logger
}

// NewRegistry создает пустой реестр контроллеров.
func NewRegistry(logger *logrus.Logger) *Registry {
	return &Registry{
		controllers: make(map[string]*Controller),
		log:         logger,
	}
}

// CreateController создает контроллер поверх готового транспорта и
// регистрирует его под именем из конфигурации. Повторное имя — ошибка.
// Неудача подключения контроллер не убивает: он регистрируется в
// отключенном состоянии с установленным флагом comms-error.
func (r *Registry) CreateController(cfg ControllerConfig, tr Transport) (*Controller, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.controllers[cfg.Name]; exists {
		return nil, fmt.Errorf("controller %q already registered", cfg.Name)
	}

	c, err := NewController(cfg, tr, r.log)
	if err != nil {
		return nil, fmt.Errorf("failed to create controller %q: %w", cfg.Name, err)
	}

	r.controllers[cfg.Name] = c
	return c, nil
}

// Lookup возвращает контроллер по имени. Отсутствующее имя — чистая
// ошибка поиска.
func (r *Registry) Lookup(name string) (*Controller, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("controller %q not found", name)
	}
	return c, nil
}

// CreateAxis создает одну ось на именованном контроллере. Номер оси
// начинается с 1; номер 0 зарезервирован и отклоняется.
func (r *Registry) CreateAxis(name string, axis int) error {
	c, err := r.Lookup(name)
	if err != nil {
		return err
	}
	_, err = c.CreateAxis(axis, models.AxisConfig{})
	return err
}

// CreateAxes создает оси 1..numAxes на именованном контроллере. Это
// пакетный вариант CreateAxis.
func (r *Registry) CreateAxes(name string, numAxes int) error {
	c, err := r.Lookup(name)
	if err != nil {
		return err
	}
	return c.CreateAxes(numAxes)
}
