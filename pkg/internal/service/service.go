package service

import (
	"context"
	"errors"

	"gorm.io/gorm"

	ctxPkg "github.com/omnivault/omnivault/pkg/context"
	"github.com/omnivault/omnivault/pkg/internal/model"
	"github.com/omnivault/omnivault/pkg/internal/storage/backend"
	"github.com/omnivault/omnivault/pkg/internal/storage/db"
	"github.com/omnivault/omnivault/pkg/internal/storage/mq"
	nlog "github.com/omnivault/omnivault/pkg/log"
)

// FileService 负责虚拟文件系统的业务逻辑（命名、分配、远端读写），不处理 HTTP 细节.
type FileService struct {
	dbClient *db.Client
	mqClient *mq.Client
	pool     *backend.Pool
	adm      *Admission
}

// NewFileService 从 context 获取依赖实例.
func NewFileService(c context.Context) *FileService {
	dbc := ctxPkg.GetDBClient(c)
	mqc := ctxPkg.GetMQClient(c)
	pool := ctxPkg.GetBackendPool(c)

	// 为了安全起见，缺依赖直接 panic 而不是返回 nil，调用方就不需要再检查
	if dbc == nil || dbc.DB == nil || pool == nil {
		nlog.Logger().Fatal().Msg("storage clients not initialized")
	}

	return &FileService{
		dbClient: dbc,
		mqClient: mqc, // 可以为 nil，事件静默丢弃
		pool:     pool,
	}
}

// NewFileServiceWith 直接注入依赖，测试用.
func NewFileServiceWith(dbc *db.Client, mqc *mq.Client, pool *backend.Pool) *FileService {
	return &FileService{dbClient: dbc, mqClient: mqc, pool: pool}
}

// WithAdmission 替换准入控制器，测试用；返回自身便于链式调用.
func (fs *FileService) WithAdmission(a *Admission) *FileService {
	fs.adm = a

	return fs
}

// admission 默认走进程级单例.
func (fs *FileService) admission() *Admission {
	if fs.adm != nil {
		return fs.adm
	}

	return DefaultAdmission()
}

// ensureUser 按名称取用户，不存在则创建，并预加载按 Position 排序的后端账户.
func (fs *FileService) ensureUser(ctx context.Context, name string) (*model.User, error) {
	if name == "" {
		return nil, ErrValidation
	}

	var u model.User

	err := fs.dbClient.WithContext(ctx).
		Preload("Accounts", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("position ASC, id ASC")
		}).
		Where("name = ?", name).
		First(&u).Error
	if err == nil {
		return &u, nil
	}

	if !isNotFound(err) {
		return nil, err
	}

	u = model.User{Name: name}
	if err := fs.dbClient.WithContext(ctx).Create(&u).Error; err != nil {
		// 并发首次访问可能撞唯一索引，重读一次
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fs.ensureUser(ctx, name)
		}

		return nil, err
	}

	return &u, nil
}

// folderByID 取属于用户的文件夹，id 为 nil 表示根目录（返回 nil, nil）.
func (fs *FileService) folderByID(ctx context.Context, user *model.User, id *uint) (*model.Folder, error) {
	if id == nil {
		return nil, nil
	}

	var f model.Folder
	if err := fs.dbClient.WithContext(ctx).First(&f, *id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if f.OwnerID != user.ID {
		return nil, ErrForbidden
	}

	return &f, nil
}

// fileByID 取属于用户的文件.
func (fs *FileService) fileByID(ctx context.Context, user *model.User, id uint) (*model.File, error) {
	var f model.File
	if err := fs.dbClient.WithContext(ctx).First(&f, id).Error; err != nil {
		if isNotFound(err) {
			return nil, ErrNotFound
		}

		return nil, err
	}

	if f.OwnerID != user.ID {
		return nil, ErrForbidden
	}

	return &f, nil
}

// accountByID 在用户已加载的账户列表中查找.
func accountByID(user *model.User, id uint) *model.BackendAccount {
	for i := range user.Accounts {
		if user.Accounts[i].ID == id {
			return &user.Accounts[i]
		}
	}

	return nil
}
