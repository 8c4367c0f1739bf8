package task

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DefaultSlippageBps is used when a task does not set slippage_bps.
const DefaultSlippageBps = 100

// Manager loads and parses Task definitions.
type Manager struct {
	logger *zap.Logger
}

// TaskConfig represents the structure of tasks YAML file
type TaskConfig struct {
	Tasks []struct {
		TaskName    string  `yaml:"task_name"`
		Wallet      string  `yaml:"wallet"`
		Operation   string  `yaml:"operation"`
		Mint        string  `yaml:"mint"`
		Asset       string  `yaml:"asset"`
		Amount      uint64  `yaml:"amount"`
		SlippageBps *uint64 `yaml:"slippage_bps"`
	} `yaml:"tasks"`
}

// NewManager constructs a Manager with the given logger.
func NewManager(logger *zap.Logger) *Manager {
	return &Manager{logger: logger.Named("tasks")}
}

// LoadTasksYAML reads tasks from a YAML file. Invalid tasks are skipped.
func (m *Manager) LoadTasksYAML(path string) ([]*Task, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var config TaskConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(config.Tasks) == 0 {
		return nil, fmt.Errorf("no tasks found in configuration")
	}

	tasks := make([]*Task, 0, len(config.Tasks))
	for i, taskData := range config.Tasks {
		mint := taskData.Mint
		if mint == "" {
			mint = taskData.Asset
		}
		key, err := solana.PublicKeyFromBase58(mint)
		if err != nil {
			m.logger.Warn("Skipping invalid task",
				zap.String("task_name", taskData.TaskName),
				zap.String("mint", mint),
				zap.Error(err))
			continue
		}

		slippage := uint64(DefaultSlippageBps)
		if taskData.SlippageBps != nil {
			slippage = *taskData.SlippageBps
		}

		task := &Task{
			ID:          i,
			TaskName:    taskData.TaskName,
			WalletName:  taskData.Wallet,
			Operation:   OperationType(taskData.Operation),
			Mint:        key,
			Amount:      taskData.Amount,
			SlippageBps: slippage,
			CreatedAt:   time.Now(),
		}
		if err := task.Validate(); err != nil {
			m.logger.Warn("Skipping invalid task", zap.String("task_name", taskData.TaskName), zap.Error(err))
			continue
		}
		tasks = append(tasks, task)
	}

	if len(tasks) == 0 {
		return nil, fmt.Errorf("no valid tasks loaded")
	}

	m.logger.Info("Tasks loaded", zap.Int("count", len(tasks)))
	return tasks, nil
}
