package speech

import (
	"sync"

	"github.com/gorilla/websocket"
)

// ConnectionManager 跟踪进行中的录音上传连接
type ConnectionManager struct {
	connections map[string]*websocket.Conn
	mu          sync.RWMutex
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
	}
}

// Add registers conn under recordingID, closing any previous connection
// with the same id.
func (cm *ConnectionManager) Add(recordingID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if old, exists := cm.connections[recordingID]; exists && old != conn {
		old.Close()
	}
	cm.connections[recordingID] = conn
}

// Remove 移除连接（不关闭）
func (cm *ConnectionManager) Remove(recordingID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.connections, recordingID)
}

// Len 返回当前连接数
func (cm *ConnectionManager) Len() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}

// CloseAll 关闭所有连接
func (cm *ConnectionManager) CloseAll() {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	for id, conn := range cm.connections {
		conn.Close()
		delete(cm.connections, id)
	}
}
