// Package admins — явно владеемое хранилище allow-list администраторов.
// Список живёт в памяти (set по ID) и после каждой мутации атомарно
// персистится в JSON-снапшот; память и диск остаются согласованными: при
// ошибке записи мутация откатывается. Обработчики получают *List как
// зависимость — глобального состояния у пакета нет.
package admins

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/go-faster/errors"

	"telegram-archivebot/internal/infra/logger"
	"telegram-archivebot/internal/infra/storage"
)

// snapshot — формат JSON-файла со списком администраторов.
type snapshot struct {
	AdminIDs []int64 `json:"admin_ids"`
}

// List — потокобезопасный allow-list с персистентным снапшотом.
type List struct {
	mu   sync.RWMutex
	path string
	ids  map[int64]struct{}
}

// Load восстанавливает список из снапшота path. Если файла ещё нет, список
// заполняется seed-значениями из конфигурации и сразу персистится. Если файл
// есть, он имеет приоритет над seed: мутации, сделанные через бота, переживают
// рестарт независимо от содержимого .env.
func Load(path string, seed []int64) (*List, error) {
	l := &List{
		path: filepath.Clean(path),
		ids:  make(map[int64]struct{}, len(seed)),
	}

	raw, err := os.ReadFile(l.path)
	switch {
	case os.IsNotExist(err):
		for _, id := range seed {
			l.ids[id] = struct{}{}
		}
		if errPersist := l.persistLocked(); errPersist != nil {
			return nil, errPersist
		}
		logger.Debugf("admins: created initial snapshot %s", l.path)
	case err != nil:
		return nil, errors.Wrap(err, "read admins snapshot")
	default:
		var snap snapshot
		if errJSON := json.Unmarshal(raw, &snap); errJSON != nil {
			return nil, errors.Wrap(errJSON, "decode admins snapshot")
		}
		for _, id := range snap.AdminIDs {
			l.ids[id] = struct{}{}
		}
	}

	if len(l.ids) == 0 {
		return nil, errors.New("admins list is empty; set ADMIN_IDS")
	}
	return l, nil
}

// Contains сообщает, входит ли ID в allow-list.
func (l *List) Contains(id int64) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.ids[id]
	return ok
}

// IDs возвращает отсортированную копию списка.
func (l *List) IDs() []int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	result := make([]int64, 0, len(l.ids))
	for id := range l.ids {
		result = append(result, id)
	}
	sort.Slice(result, func(i, j int) bool { return result[i] < result[j] })
	return result
}

// Add добавляет ID и персистит снапшот. Возвращает false без записи на диск,
// если ID уже в списке. При ошибке персиста мутация откатывается.
func (l *List) Add(id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; ok {
		return false, nil
	}
	l.ids[id] = struct{}{}
	if err := l.persistLocked(); err != nil {
		delete(l.ids, id)
		return false, err
	}
	return true, nil
}

// Remove удаляет ID и персистит снапшот. Возвращает false, если ID в списке
// не было. Последнего администратора удалить нельзя — иначе бот станет
// неуправляемым.
func (l *List) Remove(id int64) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.ids[id]; !ok {
		return false, nil
	}
	if len(l.ids) == 1 {
		return false, errors.New("cannot remove the last admin")
	}
	delete(l.ids, id)
	if err := l.persistLocked(); err != nil {
		l.ids[id] = struct{}{}
		return false, err
	}
	return true, nil
}

// persistLocked атомарно записывает текущее состояние в снапшот.
// Вызывающий удерживает как минимум write-lock.
func (l *List) persistLocked() error {
	ids := make([]int64, 0, len(l.ids))
	for id := range l.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	raw, err := json.MarshalIndent(snapshot{AdminIDs: ids}, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode admins snapshot")
	}
	if err = storage.AtomicWriteFile(l.path, raw); err != nil {
		return errors.Wrap(err, "write admins snapshot")
	}
	return nil
}
