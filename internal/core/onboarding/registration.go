package onboarding

import (
	"context"

	"github.com/ogurasousui/talent-board/internal/core/company"
	"github.com/ogurasousui/talent-board/internal/core/person"
)

// AccountRegistrar は会員登録を行います。
type AccountRegistrar interface {
	Register(ctx context.Context, in person.RegisterInput) (*person.Person, error)
}

// CompanyCreator は会社アカウントを作成します。
type CompanyCreator interface {
	CreateCompany(ctx context.Context, in company.CreateCompanyInput) (*company.Company, error)
}

// CompanyRegistration は会社アカウント登録です。担当者の登録と会社の作成を同一トランザクションで行います。
type CompanyRegistration struct {
	accounts  AccountRegistrar
	companies CompanyCreator
	tx        TransactionManager
}

// NewCompanyRegistration は CompanyRegistration を生成します。
func NewCompanyRegistration(accounts AccountRegistrar, companies CompanyCreator, tx TransactionManager) *CompanyRegistration {
	if tx == nil {
		tx = noopTransactionManager{}
	}
	return &CompanyRegistration{accounts: accounts, companies: companies, tx: tx}
}

// RegisterCompanyInput は会社アカウント登録の入力です。
type RegisterCompanyInput struct {
	Account person.RegisterInput
	Company company.CreateCompanyInput
}

// Register は担当者を company 種別で登録し、その人物を管理者とする会社を作成します。
func (r *CompanyRegistration) Register(ctx context.Context, in RegisterCompanyInput) (*person.Person, *company.Company, error) {
	var (
		p *person.Person
		c *company.Company
	)
	err := r.tx.WithinReadWrite(ctx, func(txCtx context.Context) error {
		account := in.Account
		account.AccountType = person.AccountCompany
		created, err := r.accounts.Register(txCtx, account)
		if err != nil {
			return err
		}
		input := in.Company
		input.CreatedBy = created.ID
		comp, err := r.companies.CreateCompany(txCtx, input)
		if err != nil {
			return err
		}
		p, c = created, comp
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return p, c, nil
}
